// Package vocab persists learning items and their spaced-review state.
//
// A single Item type covers both flavours the trainer deals in — plain
// vocabulary words and lesson segments cut from imported videos. The two
// share one scheduling shape (stage, interval, next review date, last
// quality) and differ only in their annotation payload, so the store keeps
// one table with a kind column and a JSON annotations document instead of
// duplicating the scheduling logic per variant.
package vocab

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the two item variants.
type Kind string

const (
	// KindWord is a plain vocabulary entry added by the learner.
	KindWord Kind = "word"

	// KindLesson is a sentence segment cut from an imported video.
	KindLesson Kind = "lesson"
)

// IsValid reports whether k is a recognised item kind.
func (k Kind) IsValid() bool {
	return k == KindWord || k == KindLesson
}

// Annotations is the variant-specific auxiliary payload of an item. None of
// these fields participate in scheduling. Word items typically carry
// Meaning and ContextSentence; lesson items carry the source video fields
// and a segment audio path.
type Annotations struct {
	// Meaning is the translation of the content into the learner's language.
	Meaning string `json:"meaning,omitempty"`

	// ContextSentence is an example sentence using the word.
	ContextSentence string `json:"context_sentence,omitempty"`

	// Transliteration is the romanised rendering of the content.
	Transliteration string `json:"transliteration,omitempty"`

	// Translation is an additional translation (lesson segments keep both an
	// English and a native-language line).
	Translation string `json:"translation,omitempty"`

	// AudioPath points at the reference audio clip for this item, if any.
	AudioPath string `json:"audio_path,omitempty"`

	// SourceURL identifies the video a lesson segment was cut from.
	SourceURL string `json:"source_url,omitempty"`

	// SourceTitle is the video title at import time.
	SourceTitle string `json:"source_title,omitempty"`

	// SegmentStart and SegmentEnd delimit the segment within the source
	// video, in seconds.
	SegmentStart float64 `json:"segment_start,omitempty"`
	SegmentEnd   float64 `json:"segment_end,omitempty"`
}

// Item is a reviewable learning item together with its scheduling state.
type Item struct {
	// ID is unique and assigned by the store; immutable once created.
	ID int64

	// Kind selects the item variant.
	Kind Kind

	// Content is the reference Hindi text to be reproduced.
	Content string

	// Annotations is the variant-specific payload.
	Annotations Annotations

	// Stage is the spaced-repetition stage in [0,5].
	Stage int

	// IntervalDays is the most recent review interval. It seeds the
	// easiness-factor growth once the stage has saturated.
	IntervalDays int

	// NextReview is the due date (midnight UTC). Always set: an item
	// without a scheduling date cannot exist.
	NextReview time.Time

	// LastQuality is the last recorded quality rating; nil until the item
	// has been reviewed once.
	LastQuality *int

	// CreatedAt is the creation timestamp; immutable.
	CreatedAt time.Time
}

// Due reports whether the item is due on the given day. Due-ness is always
// derived from NextReview, never stored.
func (it Item) Due(today time.Time) bool {
	return !it.NextReview.After(dateOnly(today))
}

// Draft is the caller-supplied part of a new item. The store assigns ID,
// stage, interval, dates.
type Draft struct {
	Kind        Kind
	Content     string
	Annotations Annotations
}

// Validate checks the draft against the store's creation contract.
func (d Draft) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Content) == "" {
		errs = append(errs, ErrEmptyContent)
	}
	if d.Kind != "" && !d.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind))
	}
	return errors.Join(errs...)
}

// Stats is the aggregate view of the vocabulary.
type Stats struct {
	// Total is the number of stored items.
	Total int

	// DueToday is the number of items due on the query day.
	DueToday int

	// StageDistribution maps stage to item count. Sparse: only stages with
	// at least one item appear.
	StageDistribution map[int]int
}

// SourceSummary describes one imported video and its lesson segments.
type SourceSummary struct {
	SourceURL    string
	SourceTitle  string
	SegmentCount int
	FirstStudied time.Time
}

// dateOnly truncates t to midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// tomorrow returns midnight UTC of the day after t. New items are first due
// the day after creation.
func tomorrow(t time.Time) time.Time {
	return dateOnly(t).AddDate(0, 0, 1)
}
