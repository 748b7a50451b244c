package identity

import (
	"context"
	"iter"
)

// Connections walks the caller's connection listing one page at a time,
// starting at startToken ("" for the first page). Iteration stops after the
// page with no next token, when the consumer breaks, or after yielding the
// first error.
//
// The loop is iterative so listings with many pages do not grow the stack,
// and a consumer that saved a page's NextPageToken can resume from it later.
func Connections(ctx context.Context, c Client, accessToken, startToken string) iter.Seq2[*ConnectionsPage, error] {
	return func(yield func(*ConnectionsPage, error) bool) {
		pageToken := startToken
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := c.ListConnections(ctx, accessToken, pageToken)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.NextPageToken == "" {
				return
			}
			pageToken = page.NextPageToken
		}
	}
}
