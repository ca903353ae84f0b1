// Package srs implements the spaced-repetition scheduler: a simplified
// SuperMemo-2 state machine over six discrete stages.
//
// A learning item sits at a stage in [0,5]. A failing quality rating (0–2)
// resets it to stage 0 with a one-day interval regardless of where it was.
// A passing rating (3–5) advances the stage by one, saturating at 5, and the
// review interval comes from a fixed table — [1,3,7,14,30,90] days by
// default — until the stage saturates, after which the interval keeps
// growing multiplicatively by the easiness factor while the stage stays put.
//
// Advance is a pure function: the reference date is an explicit parameter,
// so scheduling is testable without touching the wall clock.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrInvalidQuality = errors.New("srs: quality out of range [0,5]")
	ErrInvalidStage   = errors.New("srs: stage out of range [0,5]")
)

// MaxStage is the highest stage an item can reach. Growth beyond it affects
// only the interval.
const MaxStage = 5

// Quality is the learner's self-reported recall quality, 0 (forgot) to 5
// (instant recall). Ratings below PassingQuality reset the item.
type Quality int

// PassingQuality is the lowest quality counted as "remembered".
const PassingQuality Quality = 3

// Named quality levels matching the learner-facing choices. The 0–2 band all
// means "forgot"; 1 and 2 exist only because the scale is 0–5.
const (
	QualityForgot Quality = 0
	QualityHard   Quality = 3
	QualityGood   Quality = 4
	QualityEasy   Quality = 5
)

// IsValid reports whether q is within the 0–5 rating scale.
func (q Quality) IsValid() bool {
	return q >= 0 && q <= 5
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassingQuality
}

// String returns the learner-facing label for q: "forgot" (0–2), "hard" (3),
// "good" (4), "easy" (5). Invalid values render as "Quality(n)".
func (q Quality) String() string {
	switch {
	case q >= 0 && q < PassingQuality:
		return "forgot"
	case q == QualityHard:
		return "hard"
	case q == QualityGood:
		return "good"
	case q == QualityEasy:
		return "easy"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Params hold the scheduling constants. Construct with DefaultParams and
// override from configuration; there is no package-level mutable state.
type Params struct {
	// Intervals is the per-stage review interval table in days, indexed by
	// stage. Must have MaxStage+1 entries.
	Intervals []int

	// EasinessFactor is the multiplicative interval growth applied once the
	// stage has saturated.
	EasinessFactor float64
}

// DefaultParams returns the standard interval table [1,3,7,14,30,90] and
// easiness factor 1.3.
func DefaultParams() Params {
	return Params{
		Intervals:      []int{1, 3, 7, 14, 30, 90},
		EasinessFactor: 1.3,
	}
}

// Validate checks that p is usable: a full interval table of positive,
// non-decreasing values and an easiness factor above 1.
func (p Params) Validate() error {
	var errs []error
	if len(p.Intervals) != MaxStage+1 {
		errs = append(errs, fmt.Errorf("srs: intervals must have %d entries, got %d", MaxStage+1, len(p.Intervals)))
	}
	prev := 0
	for i, d := range p.Intervals {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("srs: intervals[%d] = %d must be positive", i, d))
		}
		if d < prev {
			errs = append(errs, fmt.Errorf("srs: intervals[%d] = %d decreases from %d", i, d, prev))
		}
		prev = d
	}
	if p.EasinessFactor <= 1 {
		errs = append(errs, fmt.Errorf("srs: easiness_factor %.2f must be > 1", p.EasinessFactor))
	}
	return errors.Join(errs...)
}

// Result is the scheduling outcome of a single review.
type Result struct {
	// Stage is the item's new stage in [0,MaxStage].
	Stage int

	// IntervalDays is the number of days until the next review.
	IntervalDays int

	// NextReview is the next due date, truncated to midnight UTC of
	// today + IntervalDays.
	NextReview time.Time
}

// Advance computes the next scheduling state for an item at stage with the
// given quality rating. lastInterval is the item's previous interval in
// days; pass 0 when unknown. today anchors the returned due date.
//
// Quality below 3 resets unconditionally: stage 0, interval 1, due
// tomorrow. Quality 3 or above advances the stage (saturating at MaxStage)
// and takes the interval from the table; once the stage has saturated with
// no table growth left, the interval is round(lastInterval × EF), falling
// back to the table's final value when lastInterval is absent.
//
// Malformed input is rejected, never clamped.
func (p Params) Advance(stage int, q Quality, lastInterval int, today time.Time) (Result, error) {
	if !q.IsValid() {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	if stage < 0 || stage > MaxStage {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}

	if !q.Passed() {
		return Result{
			Stage:        0,
			IntervalDays: 1,
			NextReview:   dateOnly(today).AddDate(0, 0, 1),
		}, nil
	}

	newStage := stage + 1
	if newStage > MaxStage {
		newStage = MaxStage
	}

	var interval int
	switch {
	case stage < MaxStage:
		// The new stage still indexes the table.
		interval = p.Intervals[newStage]
	case lastInterval > 0:
		interval = int(math.Round(float64(lastInterval) * p.EasinessFactor))
	default:
		interval = p.Intervals[MaxStage]
	}

	return Result{
		Stage:        newStage,
		IntervalDays: interval,
		NextReview:   dateOnly(today).AddDate(0, 0, interval),
	}, nil
}

// dateOnly truncates t to midnight UTC. Scheduling works in whole days.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
