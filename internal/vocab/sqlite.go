package vocab

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/riyaazhq/riyaaz/internal/srs"
)

// sqliteSchema mirrors [Schema] for SQLite: dates are stored as ISO-8601
// TEXT and annotations as a JSON text column.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    kind          TEXT NOT NULL DEFAULT 'word',
    content       TEXT NOT NULL,
    annotations   TEXT NOT NULL DEFAULT '{}',
    stage         INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 1,
    next_review   TEXT NOT NULL,
    last_quality  INTEGER,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_next_review ON items(next_review);
CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
`

const (
	sqliteDateLayout = "2006-01-02"
	sqliteTimeLayout = time.RFC3339
)

// SQLiteStore is a [Store] backed by an embedded SQLite database — the
// zero-operations option for a single-learner installation. All writes are
// single statements; SQLite serialises them on the connection, which
// satisfies the per-item write ordering the engine assumes.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if necessary) the SQLite database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and lets
	// SQLite serialise writes without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vocab: connect sqlite %q: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vocab: apply sqlite schema: %w", err)
	}

	o := applyOptions(opts)
	return &SQLiteStore{db: db, now: o.now}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddItem implements [Store.AddItem].
func (s *SQLiteStore) AddItem(ctx context.Context, draft Draft) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	kind := draft.Kind
	if kind == "" {
		kind = KindWord
	}

	annJSON, err := json.Marshal(draft.Annotations)
	if err != nil {
		return 0, fmt.Errorf("vocab: marshal annotations: %w", err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (kind, content, annotations, stage, interval_days, next_review, created_at)
		VALUES (?, ?, ?, 0, 1, ?, ?)`,
		string(kind), draft.Content, string(annJSON),
		tomorrow(now).Format(sqliteDateLayout),
		now.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("vocab: add item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("vocab: add item id: %w", err)
	}
	return id, nil
}

// GetItem implements [Store.GetItem].
func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanSQLiteItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, fmt.Errorf("vocab: get %d: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("vocab: get %d: %w", id, err)
	}
	return it, nil
}

// DueItems implements [Store.DueItems].
func (s *SQLiteStore) DueItems(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE next_review <= ?
		ORDER BY next_review ASC, id ASC`,
		dateOnly(s.now()).Format(sqliteDateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("vocab: due items: %w", err)
	}
	defer rows.Close()

	return collectSQLiteItems(rows, "due items")
}

// UpdateReview implements [Store.UpdateReview].
func (s *SQLiteStore) UpdateReview(ctx context.Context, id int64, quality srs.Quality, next time.Time, newStage, newInterval int) error {
	if err := validateReview(quality, newStage, newInterval); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET stage = ?, interval_days = ?, next_review = ?, last_quality = ?
		WHERE id = ?`,
		newStage, newInterval, dateOnly(next).Format(sqliteDateLayout), int(quality), id,
	)
	if err != nil {
		return fmt.Errorf("vocab: update review %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vocab: update review %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("vocab: update review %d: %w", id, ErrNotFound)
	}
	return nil
}

// Statistics implements [Store.Statistics].
func (s *SQLiteStore) Statistics(ctx context.Context) (Stats, error) {
	stats := Stats{StageDistribution: make(map[int]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN next_review <= ? THEN 1 END)
		FROM items`,
		dateOnly(s.now()).Format(sqliteDateLayout),
	).Scan(&stats.Total, &stats.DueToday)
	if err != nil {
		return Stats{}, fmt.Errorf("vocab: statistics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM items GROUP BY stage`)
	if err != nil {
		return Stats{}, fmt.Errorf("vocab: statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage, count int
		if err := rows.Scan(&stage, &count); err != nil {
			return Stats{}, fmt.Errorf("vocab: statistics scan: %w", err)
		}
		stats.StageDistribution[stage] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("vocab: statistics: %w", err)
	}
	return stats, nil
}

// DeleteItem implements [Store.DeleteItem]. Deleting an absent ID is not an
// error.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vocab: delete %d: %w", id, err)
	}
	return nil
}

// LessonsBySource implements [Store.LessonsBySource].
func (s *SQLiteStore) LessonsBySource(ctx context.Context, sourceURL string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE kind = 'lesson' AND json_extract(annotations, '$.source_url') = ?
		ORDER BY json_extract(annotations, '$.segment_start') ASC, id ASC`,
		sourceURL,
	)
	if err != nil {
		return nil, fmt.Errorf("vocab: lessons by source: %w", err)
	}
	defer rows.Close()

	return collectSQLiteItems(rows, "lessons by source")
}

// ListSources implements [Store.ListSources].
func (s *SQLiteStore) ListSources(ctx context.Context) ([]SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT json_extract(annotations, '$.source_url'),
		       MIN(json_extract(annotations, '$.source_title')),
		       COUNT(*),
		       MIN(created_at)
		FROM items
		WHERE kind = 'lesson' AND json_extract(annotations, '$.source_url') IS NOT NULL
		GROUP BY json_extract(annotations, '$.source_url')
		ORDER BY MIN(created_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("vocab: list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var (
			sum     SourceSummary
			title   sql.NullString
			created string
		)
		if err := rows.Scan(&sum.SourceURL, &title, &sum.SegmentCount, &created); err != nil {
			return nil, fmt.Errorf("vocab: list sources scan: %w", err)
		}
		sum.SourceTitle = title.String
		if sum.FirstStudied, err = time.Parse(sqliteTimeLayout, created); err != nil {
			return nil, fmt.Errorf("vocab: list sources parse created_at: %w", err)
		}
		sources = append(sources, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocab: list sources: %w", err)
	}
	return sources, nil
}

// scanSQLiteItem reads one item row, converting the TEXT date columns, and
// enforces read-side invariants.
func scanSQLiteItem(scan func(dest ...any) error) (Item, error) {
	var (
		it          Item
		kind        string
		annJSON     string
		next        string
		created     string
		lastQuality sql.NullInt64
	)
	err := scan(&it.ID, &kind, &it.Content, &annJSON, &it.Stage, &it.IntervalDays, &next, &lastQuality, &created)
	if err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	if lastQuality.Valid {
		q := int(lastQuality.Int64)
		it.LastQuality = &q
	}

	if it.NextReview, err = time.Parse(sqliteDateLayout, next); err != nil {
		return Item{}, fmt.Errorf("parse next_review: %w", err)
	}
	if it.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return Item{}, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(annJSON), &it.Annotations); err != nil {
		return Item{}, fmt.Errorf("unmarshal annotations: %w", err)
	}
	if err := validateStoredStage(it.ID, it.Stage); err != nil {
		return Item{}, err
	}
	return it, nil
}

// collectSQLiteItems drains rows into a slice using scanSQLiteItem.
func collectSQLiteItems(rows *sql.Rows, op string) ([]Item, error) {
	var items []Item
	for rows.Next() {
		it, err := scanSQLiteItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("vocab: %s: %w", op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocab: %s: %w", op, err)
	}
	return items, nil
}
