package vocab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riyaazhq/riyaaz/internal/srs"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrEmptyContent is returned by AddItem when the draft content is empty
	// or whitespace-only.
	ErrEmptyContent = errors.New("vocab: content must not be empty")

	// ErrInvalidKind is returned by AddItem for an unrecognised item kind.
	ErrInvalidKind = errors.New("vocab: invalid item kind")

	// ErrNotFound is returned when no item with the requested ID exists.
	ErrNotFound = errors.New("vocab: item not found")

	// ErrInvalidReview is returned by UpdateReview when the new stage or
	// quality is outside [0,5] or the interval is not positive. Writes are
	// validated so that corrupt scheduling state can never reach storage.
	ErrInvalidReview = errors.New("vocab: review values out of range")

	// ErrCorruptItem is returned when a stored item violates an invariant on
	// read (stage outside [0,5]). It signals external tampering or a bug,
	// never a normal condition.
	ErrCorruptItem = errors.New("vocab: stored item violates invariants")
)

// Store persists learning items and answers due-queries and aggregates.
//
// Implementations must be safe for concurrent use and must apply each
// UpdateReview as a single atomic write, so a crash can never leave an
// item with a new stage but an old due date.
type Store interface {
	// AddItem creates a new item from the draft at stage 0, due tomorrow.
	// Returns the assigned ID. Fails with ErrEmptyContent when the content
	// is empty and ErrInvalidKind for an unknown kind; an empty kind
	// defaults to KindWord.
	AddItem(ctx context.Context, draft Draft) (int64, error)

	// GetItem retrieves an item by ID. Returns ErrNotFound when absent.
	GetItem(ctx context.Context, id int64) (Item, error)

	// DueItems returns all items with a next review date on or before
	// today, oldest due date first. An empty result is not an error.
	DueItems(ctx context.Context) ([]Item, error)

	// UpdateReview atomically records a review outcome: stage, interval,
	// next review date, and last quality change together. Returns
	// ErrNotFound when the ID does not exist and ErrInvalidReview when the
	// values are out of range.
	UpdateReview(ctx context.Context, id int64, quality srs.Quality, next time.Time, newStage, newInterval int) error

	// Statistics returns the aggregate view: total items, items due today,
	// and the sparse per-stage distribution.
	Statistics(ctx context.Context) (Stats, error)

	// DeleteItem removes an item permanently. Deleting an absent ID is not
	// an error: the call is idempotent, mirroring how a learner retries a
	// failed deletion from the UI.
	DeleteItem(ctx context.Context, id int64) error

	// LessonsBySource returns all lesson segments imported from the given
	// video, in segment order.
	LessonsBySource(ctx context.Context, sourceURL string) ([]Item, error)

	// ListSources returns one summary per imported video, most recently
	// studied first.
	ListSources(ctx context.Context) ([]SourceSummary, error)
}

// validateReview bounds-checks an UpdateReview call before it is written.
func validateReview(quality srs.Quality, newStage, newInterval int) error {
	if !quality.IsValid() || newStage < 0 || newStage > srs.MaxStage || newInterval < 1 {
		return ErrInvalidReview
	}
	return nil
}

// validateStoredStage guards the stage invariant on read.
func validateStoredStage(id int64, stage int) error {
	if stage < 0 || stage > srs.MaxStage {
		return fmt.Errorf("%w: item %d has stage %d", ErrCorruptItem, id, stage)
	}
	return nil
}

// options carries construction settings shared by all store implementations.
type options struct {
	now func() time.Time
}

// Option configures a store at construction time.
type Option func(*options)

// WithClock replaces the store's notion of "now". Due-queries and creation
// dates derive from this clock, so tests can simulate the passage of days.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
