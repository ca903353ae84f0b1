package vocab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/riyaazhq/riyaaz/internal/srs"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data    [][]any
	idx     int
	err     error
	closed  bool
	scanErr error
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		case **int:
			if v == nil {
				*d = nil
			} else {
				q := v.(int)
				*d = &q
			}
		case **string:
			if v == nil {
				*d = nil
			} else {
				q := v.(string)
				*d = &q
			}
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

func (r *mockRows) Values() ([]any, error) { return nil, nil }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// fixedClock pins store time for deterministic due-date assertions.
var fixedClock = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func withFixedClock() Option {
	return WithClock(func() time.Time { return fixedClock })
}

// makeItemRow builds a raw column row matching itemColumns order.
func makeItemRow(id int64, kind, content string, stage int, next time.Time) []any {
	return []any{
		id,           // id
		kind,         // kind
		content,      // content
		[]byte(`{}`), // annotations
		stage,        // stage
		1,            // interval_days
		next,         // next_review
		nil,          // last_quality
		fixedClock,   // created_at
	}
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "CREATE TABLE") {
					t.Errorf("Migrate SQL should contain CREATE TABLE, got: %s", sql)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		store := NewPostgresStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() unexpected error: %v", err)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("connection refused")
			},
		}
		store := NewPostgresStore(db)
		err := store.Migrate(context.Background())
		if err == nil {
			t.Fatal("Migrate() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "vocab: migrate:") {
			t.Errorf("error = %q, want prefix 'vocab: migrate:'", err.Error())
		}
	})
}

func TestPostgresStore_AddItem(t *testing.T) {
	t.Parallel()

	t.Run("success schedules for tomorrow at stage zero", func(t *testing.T) {
		t.Parallel()

		var capturedSQL string
		var capturedArgs []any
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				capturedSQL = sql
				capturedArgs = args
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*int64)) = 42
						return nil
					},
				}
			},
		}

		store := NewPostgresStore(db, withFixedClock())
		id, err := store.AddItem(context.Background(), Draft{Content: "नमस्ते"})
		if err != nil {
			t.Fatalf("AddItem() unexpected error: %v", err)
		}
		if id != 42 {
			t.Errorf("AddItem() id = %d, want 42", id)
		}
		if !strings.Contains(capturedSQL, "INSERT INTO items") {
			t.Errorf("SQL should contain INSERT, got: %s", capturedSQL)
		}
		if capturedArgs[0] != "word" {
			t.Errorf("kind arg = %v, want 'word' by default", capturedArgs[0])
		}
		wantDue := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		if got := capturedArgs[3].(time.Time); !got.Equal(wantDue) {
			t.Errorf("next_review arg = %v, want %v", got, wantDue)
		}
	})

	t.Run("empty content rejected", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		_, err := store.AddItem(context.Background(), Draft{Content: "   "})
		if !errors.Is(err, ErrEmptyContent) {
			t.Errorf("AddItem() error = %v, want ErrEmptyContent", err)
		}
	})

	t.Run("invalid kind rejected", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		_, err := store.AddItem(context.Background(), Draft{Kind: "flashcard", Content: "x"})
		if !errors.Is(err, ErrInvalidKind) {
			t.Errorf("AddItem() error = %v, want ErrInvalidKind", err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{
					scanFunc: func(_ ...any) error { return errors.New("connection lost") },
				}
			},
		}
		store := NewPostgresStore(db)
		_, err := store.AddItem(context.Background(), Draft{Content: "x"})
		if err == nil {
			t.Fatal("AddItem() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "vocab: add item:") {
			t.Errorf("error = %q, want prefix 'vocab: add item:'", err.Error())
		}
	})
}

func TestPostgresStore_GetItem(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		next := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
				if args[0] != int64(7) {
					t.Errorf("GetItem() id arg = %v, want 7", args[0])
				}
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*int64)) = 7
						*(dest[1].(*string)) = "lesson"
						*(dest[2].(*string)) = "मैं हिंदी सीख रहा हूँ"
						*(dest[3].(*[]byte)) = []byte(`{"source_url":"https://example.com/v1","segment_start":12.5}`)
						*(dest[4].(*int)) = 2
						*(dest[5].(*int)) = 7
						*(dest[6].(*time.Time)) = next
						q := 4
						*(dest[7].(**int)) = &q
						*(dest[8].(*time.Time)) = fixedClock
						return nil
					},
				}
			},
		}

		store := NewPostgresStore(db)
		it, err := store.GetItem(context.Background(), 7)
		if err != nil {
			t.Fatalf("GetItem() unexpected error: %v", err)
		}
		if it.Kind != KindLesson {
			t.Errorf("Kind = %q, want lesson", it.Kind)
		}
		if it.Annotations.SourceURL != "https://example.com/v1" {
			t.Errorf("SourceURL = %q, want example URL", it.Annotations.SourceURL)
		}
		if it.Annotations.SegmentStart != 12.5 {
			t.Errorf("SegmentStart = %g, want 12.5", it.Annotations.SegmentStart)
		}
		if it.LastQuality == nil || *it.LastQuality != 4 {
			t.Errorf("LastQuality = %v, want 4", it.LastQuality)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		_, err := store.GetItem(context.Background(), 99)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetItem() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("corrupt stage rejected", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*int64)) = 3
						*(dest[1].(*string)) = "word"
						*(dest[2].(*string)) = "x"
						*(dest[3].(*[]byte)) = []byte(`{}`)
						*(dest[4].(*int)) = 9 // out of range
						*(dest[5].(*int)) = 1
						*(dest[6].(*time.Time)) = fixedClock
						*(dest[7].(**int)) = nil
						*(dest[8].(*time.Time)) = fixedClock
						return nil
					},
				}
			},
		}
		store := NewPostgresStore(db)
		_, err := store.GetItem(context.Background(), 3)
		if !errors.Is(err, ErrCorruptItem) {
			t.Errorf("GetItem() error = %v, want ErrCorruptItem", err)
		}
	})
}

func TestPostgresStore_DueItems(t *testing.T) {
	t.Parallel()

	t.Run("passes today and collects rows", func(t *testing.T) {
		t.Parallel()
		due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		db := &mockDB{
			queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
				if !strings.Contains(sql, "next_review <= $1") {
					t.Errorf("SQL should filter on next_review, got: %s", sql)
				}
				if got := args[0].(time.Time); !got.Equal(due) {
					t.Errorf("today arg = %v, want %v", got, due)
				}
				return &mockRows{
					data: [][]any{
						makeItemRow(1, "word", "एक", 0, due),
						makeItemRow(2, "word", "दो", 1, due),
					},
				}, nil
			},
		}

		store := NewPostgresStore(db, withFixedClock())
		items, err := store.DueItems(context.Background())
		if err != nil {
			t.Fatalf("DueItems() unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("DueItems() returned %d items, want 2", len(items))
		}
		if items[0].Content != "एक" || items[1].Content != "दो" {
			t.Errorf("items = %v, want [एक दो]", items)
		}
	})

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{}, withFixedClock())
		items, err := store.DueItems(context.Background())
		if err != nil {
			t.Fatalf("DueItems() unexpected error: %v", err)
		}
		if items != nil {
			t.Errorf("DueItems() = %v, want nil for empty result", items)
		}
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return nil, errors.New("connection reset")
			},
		}
		store := NewPostgresStore(db)
		_, err := store.DueItems(context.Background())
		if err == nil {
			t.Fatal("DueItems() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "vocab: due items:") {
			t.Errorf("error = %q, want prefix 'vocab: due items:'", err.Error())
		}
	})

	t.Run("rows error after iteration", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &mockRows{err: errors.New("stream interrupted")}, nil
			},
		}
		store := NewPostgresStore(db)
		_, err := store.DueItems(context.Background())
		if err == nil {
			t.Fatal("DueItems() expected error from rows.Err()")
		}
	})
}

func TestPostgresStore_UpdateReview(t *testing.T) {
	t.Parallel()

	t.Run("single statement with all fields", func(t *testing.T) {
		t.Parallel()

		var capturedSQL string
		var capturedArgs []any
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				capturedSQL = sql
				capturedArgs = args
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*int64)) = 5
						return nil
					},
				}
			},
		}

		store := NewPostgresStore(db)
		next := time.Date(2026, 3, 21, 10, 0, 0, 0, time.UTC)
		err := store.UpdateReview(context.Background(), 5, srs.QualityGood, next, 2, 7)
		if err != nil {
			t.Fatalf("UpdateReview() unexpected error: %v", err)
		}
		if !strings.Contains(capturedSQL, "UPDATE items") {
			t.Errorf("SQL should contain UPDATE, got: %s", capturedSQL)
		}
		if capturedArgs[1] != 2 || capturedArgs[2] != 7 {
			t.Errorf("stage/interval args = %v/%v, want 2/7", capturedArgs[1], capturedArgs[2])
		}
		// Time-of-day is stripped before persisting.
		wantNext := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)
		if got := capturedArgs[3].(time.Time); !got.Equal(wantNext) {
			t.Errorf("next_review arg = %v, want %v", got, wantNext)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		err := store.UpdateReview(context.Background(), 99, srs.QualityGood, fixedClock, 1, 3)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateReview() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("malformed review rejected before touching db", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				t.Error("db should not be touched for invalid input")
				return &mockRow{scanFunc: func(_ ...any) error { return nil }}
			},
		}
		store := NewPostgresStore(db)

		if err := store.UpdateReview(context.Background(), 1, srs.Quality(7), fixedClock, 1, 3); !errors.Is(err, ErrInvalidReview) {
			t.Errorf("quality 7: error = %v, want ErrInvalidReview", err)
		}
		if err := store.UpdateReview(context.Background(), 1, srs.QualityGood, fixedClock, 6, 3); !errors.Is(err, ErrInvalidReview) {
			t.Errorf("stage 6: error = %v, want ErrInvalidReview", err)
		}
		if err := store.UpdateReview(context.Background(), 1, srs.QualityGood, fixedClock, 1, 0); !errors.Is(err, ErrInvalidReview) {
			t.Errorf("interval 0: error = %v, want ErrInvalidReview", err)
		}
	})
}

func TestPostgresStore_Statistics(t *testing.T) {
	t.Parallel()

	t.Run("totals and distribution", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{
					scanFunc: func(dest ...any) error {
						*(dest[0].(*int)) = 3
						*(dest[1].(*int)) = 1
						return nil
					},
				}
			},
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return &mockRows{
					data: [][]any{
						{0, 2},
						{2, 1},
					},
				}, nil
			},
		}

		store := NewPostgresStore(db, withFixedClock())
		stats, err := store.Statistics(context.Background())
		if err != nil {
			t.Fatalf("Statistics() unexpected error: %v", err)
		}
		if stats.Total != 3 || stats.DueToday != 1 {
			t.Errorf("totals = %d/%d, want 3/1", stats.Total, stats.DueToday)
		}
		if stats.StageDistribution[0] != 2 || stats.StageDistribution[2] != 1 {
			t.Errorf("distribution = %v, want {0:2 2:1}", stats.StageDistribution)
		}
		if _, ok := stats.StageDistribution[1]; ok {
			t.Error("distribution should be sparse, stage 1 must be absent")
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(_ ...any) error { return errors.New("timeout") }}
			},
		}
		store := NewPostgresStore(db)
		_, err := store.Statistics(context.Background())
		if err == nil {
			t.Fatal("Statistics() expected error, got nil")
		}
	})
}

func TestPostgresStore_DeleteItem(t *testing.T) {
	t.Parallel()

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		var capturedArgs []any
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				capturedArgs = args
				if !strings.Contains(sql, "DELETE FROM items") {
					t.Errorf("SQL = %q, want DELETE statement", sql)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		store := NewPostgresStore(db)
		if err := store.DeleteItem(context.Background(), 42); err != nil {
			t.Fatalf("DeleteItem() unexpected error: %v", err)
		}
		if len(capturedArgs) != 1 || capturedArgs[0] != int64(42) {
			t.Errorf("args = %v, want [42]", capturedArgs)
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("disk full")
			},
		}
		store := NewPostgresStore(db)
		if err := store.DeleteItem(context.Background(), 1); err == nil {
			t.Fatal("DeleteItem() expected error, got nil")
		}
	})
}

func TestPostgresStore_LessonsBySource(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			if !strings.Contains(sql, "annotations->>'source_url'") {
				t.Errorf("SQL should filter on source_url, got: %s", sql)
			}
			if args[0] != "https://example.com/v1" {
				t.Errorf("args = %v, want source URL", args)
			}
			return &mockRows{
				data: [][]any{
					makeItemRow(1, "lesson", "पहला वाक्य", 0, fixedClock),
				},
			}, nil
		},
	}

	store := NewPostgresStore(db)
	items, err := store.LessonsBySource(context.Background(), "https://example.com/v1")
	if err != nil {
		t.Fatalf("LessonsBySource() unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Kind != KindLesson {
		t.Errorf("items = %v, want one lesson", items)
	}
}

func TestPostgresStore_ListSources(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryFunc: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			if !strings.Contains(sql, "GROUP BY annotations->>'source_url'") {
				t.Errorf("SQL should group by source_url, got: %s", sql)
			}
			return &mockRows{
				data: [][]any{
					{"https://example.com/v1", "Hindi lesson 1", 4, fixedClock},
					// imported without a title: annotations carry no
					// source_title key, so the aggregate is NULL
					{"https://example.com/v2", nil, 2, fixedClock},
				},
			}, nil
		},
	}

	store := NewPostgresStore(db)
	sources, err := store.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources() unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListSources() returned %d sources, want 2", len(sources))
	}
	if sources[0].SegmentCount != 4 {
		t.Errorf("SegmentCount = %d, want 4", sources[0].SegmentCount)
	}
	if sources[0].SourceTitle != "Hindi lesson 1" {
		t.Errorf("SourceTitle = %q, want 'Hindi lesson 1'", sources[0].SourceTitle)
	}
	if sources[1].SourceTitle != "" {
		t.Errorf("SourceTitle = %q, want empty for an untitled source", sources[1].SourceTitle)
	}
	if sources[1].SegmentCount != 2 {
		t.Errorf("SegmentCount = %d, want 2", sources[1].SegmentCount)
	}
}
