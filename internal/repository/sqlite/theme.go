package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// ThemeStore implements repository.ThemeRepository.
type ThemeStore struct {
	conn *sql.DB
}

var _ repository.ThemeRepository = (*ThemeStore)(nil)

// themes.start holds a calendar day, not an instant.
const dayLayout = "2006-01-02"

// GetOrCreate is safe to call concurrently: the UNIQUE start column lets
// only one insert per day win and everyone reads the winner back.
func (s *ThemeStore) GetOrCreate(ctx context.Context, day time.Time, name string) (*model.Theme, error) {
	start := day.UTC().Format(dayLayout)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO themes (id, display_name, start, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (start) DO NOTHING`,
		xid.New().String(), name, start, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating theme for %s: %w", start, err)
	}

	t, err := scanTheme(s.conn.QueryRowContext(ctx,
		`SELECT id, display_name, start, created_at FROM themes WHERE start = ?`, start))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading theme for %s: %w", start, err)
	}
	return t, nil
}

func (s *ThemeStore) List(ctx context.Context) ([]model.Theme, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, display_name, start, created_at FROM themes ORDER BY start DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing themes: %w", err)
	}
	defer rows.Close()

	themes := []model.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning theme: %w", err)
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

func scanTheme(row rowScanner) (*model.Theme, error) {
	var t model.Theme
	var start string
	if err := row.Scan(&t.ID, &t.DisplayName, &start, &t.Created); err != nil {
		return nil, err
	}

	var err error
	if t.Start, err = time.Parse(dayLayout, start); err != nil {
		return nil, fmt.Errorf("parsing theme start %q: %w", start, err)
	}
	return &t, nil
}
