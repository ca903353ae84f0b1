package vocab

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riyaazhq/riyaaz/internal/srs"
)

// MemStore is an in-memory [Store] for tests and throwaway sessions.
// Nothing is persisted past process exit.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Item
	now    func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	o := applyOptions(opts)
	return &MemStore{
		nextID: 1,
		items:  make(map[int64]Item),
		now:    o.now,
	}
}

// AddItem implements [Store.AddItem].
func (s *MemStore) AddItem(_ context.Context, draft Draft) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	kind := draft.Kind
	if kind == "" {
		kind = KindWord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.nextID
	s.nextID++
	s.items[id] = Item{
		ID:           id,
		Kind:         kind,
		Content:      draft.Content,
		Annotations:  draft.Annotations,
		Stage:        0,
		IntervalDays: 1,
		NextReview:   tomorrow(now),
		CreatedAt:    now.UTC(),
	}
	return id, nil
}

// GetItem implements [Store.GetItem].
func (s *MemStore) GetItem(_ context.Context, id int64) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return Item{}, fmt.Errorf("vocab: get %d: %w", id, ErrNotFound)
	}
	return it, nil
}

// DueItems implements [Store.DueItems].
func (s *MemStore) DueItems(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := dateOnly(s.now())
	var due []Item
	for _, it := range s.items {
		if !it.NextReview.After(today) {
			due = append(due, it)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(due[j].NextReview) {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// UpdateReview implements [Store.UpdateReview].
func (s *MemStore) UpdateReview(_ context.Context, id int64, quality srs.Quality, next time.Time, newStage, newInterval int) error {
	if err := validateReview(quality, newStage, newInterval); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("vocab: update review %d: %w", id, ErrNotFound)
	}
	q := int(quality)
	it.Stage = newStage
	it.IntervalDays = newInterval
	it.NextReview = dateOnly(next)
	it.LastQuality = &q
	s.items[id] = it
	return nil
}

// Statistics implements [Store.Statistics].
func (s *MemStore) Statistics(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := dateOnly(s.now())
	stats := Stats{StageDistribution: make(map[int]int)}
	for _, it := range s.items {
		stats.Total++
		if !it.NextReview.After(today) {
			stats.DueToday++
		}
		stats.StageDistribution[it.Stage]++
	}
	return stats, nil
}

// DeleteItem implements [Store.DeleteItem]. Deleting an absent ID is not an
// error.
func (s *MemStore) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// LessonsBySource implements [Store.LessonsBySource].
func (s *MemStore) LessonsBySource(_ context.Context, sourceURL string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lessons []Item
	for _, it := range s.items {
		if it.Kind == KindLesson && it.Annotations.SourceURL == sourceURL {
			lessons = append(lessons, it)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Annotations.SegmentStart != lessons[j].Annotations.SegmentStart {
			return lessons[i].Annotations.SegmentStart < lessons[j].Annotations.SegmentStart
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons, nil
}

// ListSources implements [Store.ListSources].
func (s *MemStore) ListSources(_ context.Context) ([]SourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byURL := make(map[string]*SourceSummary)
	for _, it := range s.items {
		if it.Kind != KindLesson || it.Annotations.SourceURL == "" {
			continue
		}
		sum, ok := byURL[it.Annotations.SourceURL]
		if !ok {
			sum = &SourceSummary{
				SourceURL:    it.Annotations.SourceURL,
				SourceTitle:  it.Annotations.SourceTitle,
				FirstStudied: it.CreatedAt,
			}
			byURL[it.Annotations.SourceURL] = sum
		}
		sum.SegmentCount++
		if it.CreatedAt.Before(sum.FirstStudied) {
			sum.FirstStudied = it.CreatedAt
		}
		if sum.SourceTitle == "" {
			sum.SourceTitle = it.Annotations.SourceTitle
		}
	}

	sources := make([]SourceSummary, 0, len(byURL))
	for _, sum := range byURL {
		sources = append(sources, *sum)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].FirstStudied.After(sources[j].FirstStudied)
	})
	return sources, nil
}
