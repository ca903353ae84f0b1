package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/riyaazhq/riyaaz/internal/srs"
)

// Schema is the SQL DDL for the items table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
    id            BIGSERIAL PRIMARY KEY,
    kind          TEXT NOT NULL DEFAULT 'word',
    content       TEXT NOT NULL,
    annotations   JSONB NOT NULL DEFAULT '{}',
    stage         INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 1,
    next_review   DATE NOT NULL,
    last_quality  INTEGER,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_items_next_review ON items(next_review);
CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
CREATE INDEX IF NOT EXISTS idx_items_source ON items((annotations->>'source_url')) WHERE kind = 'lesson';
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Variant-specific
// annotations are serialised as JSONB. Every write is a single statement,
// so review updates are atomic and concurrent updates to the same item are
// serialised by row-level locking.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB, opts ...Option) *PostgresStore {
	o := applyOptions(opts)
	return &PostgresStore{db: db, now: o.now}
}

// Migrate executes the [Schema] DDL, creating the items table and indexes
// if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("vocab: migrate: %w", err)
	}
	return nil
}

const itemColumns = `id, kind, content, annotations, stage, interval_days, next_review, last_quality, created_at`

// AddItem implements [Store.AddItem].
func (s *PostgresStore) AddItem(ctx context.Context, draft Draft) (int64, error) {
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

	const query = `
		INSERT INTO items (kind, content, annotations, stage, interval_days, next_review)
		VALUES ($1, $2, $3, 0, 1, $4)
		RETURNING id`

	var id int64
	err = s.db.QueryRow(ctx, query, string(kind), draft.Content, annJSON, tomorrow(s.now())).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("vocab: add item: %w", err)
	}
	return id, nil
}

// GetItem implements [Store.GetItem].
func (s *PostgresStore) GetItem(ctx context.Context, id int64) (Item, error) {
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("vocab: get %d: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("vocab: get %d: %w", id, err)
	}
	return it, nil
}

// DueItems implements [Store.DueItems].
func (s *PostgresStore) DueItems(ctx context.Context) ([]Item, error) {
	const query = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE next_review <= $1
		ORDER BY next_review ASC, id ASC`

	rows, err := s.db.Query(ctx, query, dateOnly(s.now()))
	if err != nil {
		return nil, fmt.Errorf("vocab: due items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows, "due items")
}

// UpdateReview implements [Store.UpdateReview]. The update is a single
// statement: stage, interval, next review date, and last quality change
// together or not at all.
func (s *PostgresStore) UpdateReview(ctx context.Context, id int64, quality srs.Quality, next time.Time, newStage, newInterval int) error {
	if err := validateReview(quality, newStage, newInterval); err != nil {
		return err
	}

	const query = `
		UPDATE items
		SET stage = $2, interval_days = $3, next_review = $4, last_quality = $5
		WHERE id = $1
		RETURNING id`

	var updated int64
	err := s.db.QueryRow(ctx, query, id, newStage, newInterval, dateOnly(next), int(quality)).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("vocab: update review %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("vocab: update review %d: %w", id, err)
	}
	return nil
}

// Statistics implements [Store.Statistics].
func (s *PostgresStore) Statistics(ctx context.Context) (Stats, error) {
	stats := Stats{StageDistribution: make(map[int]int)}

	const totalsQuery = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE next_review <= $1)
		FROM items`
	if err := s.db.QueryRow(ctx, totalsQuery, dateOnly(s.now())).Scan(&stats.Total, &stats.DueToday); err != nil {
		return Stats{}, fmt.Errorf("vocab: statistics: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT stage, COUNT(*) FROM items GROUP BY stage`)
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
func (s *PostgresStore) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("vocab: delete %d: %w", id, err)
	}
	return nil
}

// LessonsBySource implements [Store.LessonsBySource].
func (s *PostgresStore) LessonsBySource(ctx context.Context, sourceURL string) ([]Item, error) {
	const query = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE kind = 'lesson' AND annotations->>'source_url' = $1
		ORDER BY (annotations->>'segment_start')::float8 ASC, id ASC`

	rows, err := s.db.Query(ctx, query, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("vocab: lessons by source: %w", err)
	}
	defer rows.Close()

	return collectItems(rows, "lessons by source")
}

// ListSources implements [Store.ListSources].
func (s *PostgresStore) ListSources(ctx context.Context) ([]SourceSummary, error) {
	const query = `
		SELECT annotations->>'source_url',
		       MIN(annotations->>'source_title'),
		       COUNT(*),
		       MIN(created_at)
		FROM items
		WHERE kind = 'lesson' AND annotations->>'source_url' IS NOT NULL
		GROUP BY annotations->>'source_url'
		ORDER BY MIN(created_at) DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vocab: list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var (
			sum SourceSummary
			// source_title is absent from annotations imported without a
			// title, so the aggregate can be NULL.
			title *string
		)
		if err := rows.Scan(&sum.SourceURL, &title, &sum.SegmentCount, &sum.FirstStudied); err != nil {
			return nil, fmt.Errorf("vocab: list sources scan: %w", err)
		}
		if title != nil {
			sum.SourceTitle = *title
		}
		sources = append(sources, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocab: list sources: %w", err)
	}
	return sources, nil
}

// scanItem reads one item row and enforces read-side invariants.
func scanItem(row pgx.Row) (Item, error) {
	var (
		it          Item
		kind        string
		annJSON     []byte
		lastQuality *int
	)
	err := row.Scan(&it.ID, &kind, &it.Content, &annJSON, &it.Stage, &it.IntervalDays, &it.NextReview, &lastQuality, &it.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	it.LastQuality = lastQuality
	it.NextReview = dateOnly(it.NextReview)

	if err := json.Unmarshal(annJSON, &it.Annotations); err != nil {
		return Item{}, fmt.Errorf("unmarshal annotations: %w", err)
	}
	if err := validateStoredStage(it.ID, it.Stage); err != nil {
		return Item{}, err
	}
	return it, nil
}

// collectItems drains rows into a slice using scanItem.
func collectItems(rows pgx.Rows, op string) ([]Item, error) {
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
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
