// Package session remembers which canvases were viewed, and how: the
// recent-canvas list, the last flow direction and the last selected node
// per canvas.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/graph"
)

// Registered database/sql driver names
const (
	DriverCGO  = "sqlite3" // mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// DefaultRecentLimit bounds Recent when no limit is given
const DefaultRecentLimit = 20

// Visit is one row of the view history
type Visit struct {
	CanvasID  string
	Title     string
	Source    string // server URL or file path
	Direction graph.Direction
	Selected  string
	OpenedAt  time.Time
	OpenCount int
}

// Store persists the view history
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens or creates the history database at dbPath with the named
// driver; an empty driver means DriverCGO.
func Open(dbPath, driver string) (*Store, error) {
	switch driver {
	case "":
		driver = DriverCGO
	case DriverCGO, DriverPure:
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q (want %s or %s)", driver, DriverCGO, DriverPure)
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps :memory: databases stable and serializes writes
	db.SetMaxOpenConns(1)

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Driver returns the driver name the store was opened with
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS canvas_history (
		canvas_id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL DEFAULT '',
		selected TEXT NOT NULL DEFAULT '',
		opened_at INTEGER NOT NULL,
		open_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_history_opened ON canvas_history(opened_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordOpen notes that a canvas was opened now, bumping its open count.
// Direction and selection from earlier visits are kept.
func (s *Store) RecordOpen(ctx context.Context, canvasID, title, source string) error {
	if canvasID == "" {
		return fmt.Errorf("record open: empty canvas id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canvas_history (canvas_id, title, source, opened_at, open_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(canvas_id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			opened_at = excluded.opened_at,
			open_count = canvas_history.open_count + 1
	`, canvasID, title, source, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record open %s: %w", canvasID, err)
	}
	return nil
}

// Recent returns visits, most recent first
func (s *Store) Recent(ctx context.Context, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT canvas_id, title, source, direction, selected, opened_at, open_count
		FROM canvas_history
		ORDER BY opened_at DESC, canvas_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Get returns the history row of one canvas
func (s *Store) Get(ctx context.Context, canvasID string) (Visit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT canvas_id, title, source, direction, selected, opened_at, open_count
		FROM canvas_history
		WHERE canvas_id = ?
	`, canvasID)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Visit{}, false, nil
	}
	if err != nil {
		return Visit{}, false, err
	}
	return v, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVisit(row scanner) (Visit, error) {
	var v Visit
	var dir string
	var openedAt int64
	if err := row.Scan(&v.CanvasID, &v.Title, &v.Source, &dir, &v.Selected, &openedAt, &v.OpenCount); err != nil {
		return Visit{}, err
	}
	v.Direction = graph.Direction(dir)
	v.OpenedAt = time.UnixMilli(openedAt)
	return v, nil
}

// SetDirection remembers the flow direction of a canvas already in the
// history
func (s *Store) SetDirection(ctx context.Context, canvasID string, dir graph.Direction) error {
	if !dir.IsValid() {
		return fmt.Errorf("invalid direction %q", dir)
	}
	return s.update(ctx, `UPDATE canvas_history SET direction = ? WHERE canvas_id = ?`, string(dir), canvasID)
}

// SetSelected remembers the selected node of a canvas; "" clears it
func (s *Store) SetSelected(ctx context.Context, canvasID, nodeID string) error {
	return s.update(ctx, `UPDATE canvas_history SET selected = ? WHERE canvas_id = ?`, nodeID, canvasID)
}

// Forget removes a canvas from the history
func (s *Store) Forget(ctx context.Context, canvasID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM canvas_history WHERE canvas_id = ?`, canvasID)
	return err
}

func (s *Store) update(ctx context.Context, query, value, canvasID string) error {
	res, err := s.db.ExecContext(ctx, query, value, canvasID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("canvas %s is not in the history", canvasID)
	}
	return nil
}
