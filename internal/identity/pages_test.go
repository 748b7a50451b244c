package identity

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedClient serves ListConnections from a map of page token -> page.
type pagedClient struct {
	Client
	pages map[string]*ConnectionsPage
	fail  map[string]error
	calls []string
}

func (c *pagedClient) ListConnections(_ context.Context, _ string, pageToken string) (*ConnectionsPage, error) {
	c.calls = append(c.calls, pageToken)
	if err := c.fail[pageToken]; err != nil {
		return nil, err
	}
	return c.pages[pageToken], nil
}

func collect(t *testing.T, c Client, start string) ([]string, error) {
	t.Helper()
	var ids []string
	for page, err := range Connections(context.Background(), c, "tok", start) {
		if err != nil {
			return ids, err
		}
		ids = append(ids, page.IDs...)
	}
	return ids, nil
}

func TestConnections_FollowsNextPageToken(t *testing.T) {
	c := &pagedClient{pages: map[string]*ConnectionsPage{
		"":   {IDs: []string{"a", "b"}, NextPageToken: "p2"},
		"p2": {IDs: []string{"c"}, NextPageToken: "p3"},
		"p3": {IDs: []string{"d"}},
	}}

	ids, err := collect(t, c, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, []string{"", "p2", "p3"}, c.calls)
}

func TestConnections_ResumesFromToken(t *testing.T) {
	c := &pagedClient{pages: map[string]*ConnectionsPage{
		"":   {IDs: []string{"a"}, NextPageToken: "p2"},
		"p2": {IDs: []string{"b"}},
	}}

	ids, err := collect(t, c, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
	assert.Equal(t, []string{"p2"}, c.calls)
}

func TestConnections_StopsAtFirstError(t *testing.T) {
	boom := errors.New("connection reset")
	c := &pagedClient{
		pages: map[string]*ConnectionsPage{
			"":   {IDs: []string{"a", "b"}, NextPageToken: "p2"},
			"p3": {IDs: []string{"never"}},
		},
		fail: map[string]error{"p2": boom},
	}

	ids, err := collect(t, c, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, ids, "pages before the failure are still delivered")
	assert.Equal(t, []string{"", "p2"}, c.calls)
}

func TestConnections_ConsumerBreak(t *testing.T) {
	c := &pagedClient{pages: map[string]*ConnectionsPage{
		"":   {IDs: []string{"a"}, NextPageToken: "p2"},
		"p2": {IDs: []string{"b"}},
	}}

	for range Connections(context.Background(), c, "tok", "") {
		break
	}
	assert.Equal(t, []string{""}, c.calls)
}

func TestConnections_ManyPages(t *testing.T) {
	const n = 5000
	pages := make(map[string]*ConnectionsPage, n)
	for i := range n {
		tok := ""
		if i > 0 {
			tok = "p" + strconv.Itoa(i)
		}
		next := ""
		if i < n-1 {
			next = "p" + strconv.Itoa(i+1)
		}
		pages[tok] = &ConnectionsPage{IDs: []string{"x"}, NextPageToken: next}
	}

	ids, err := collect(t, &pagedClient{pages: pages}, "")
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestConnections_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &pagedClient{pages: map[string]*ConnectionsPage{"": {IDs: []string{"a"}}}}

	for _, err := range Connections(ctx, c, "tok", "") {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Empty(t, c.calls)
}
