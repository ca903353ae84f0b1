// Package review orchestrates spaced-repetition review sessions: it walks
// the due items, presents each one to the learner, optionally runs a
// shadowing attempt through the speech stack, collects a recall rating, and
// persists the rescheduled item.
//
// The Runner is deliberately tolerant of per-item failures: a broken
// recording or a store hiccup skips that item and the session moves on, with
// the failure recorded in the final Summary.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riyaazhq/riyaaz/internal/observe"
	"github.com/riyaazhq/riyaaz/internal/scoring"
	"github.com/riyaazhq/riyaaz/internal/srs"
	"github.com/riyaazhq/riyaaz/internal/vocab"
	"github.com/riyaazhq/riyaaz/pkg/provider/stt"
	"github.com/riyaazhq/riyaaz/pkg/provider/tts"
)

// Phase is the observable state of a Runner while a session is active.
// UIs may poll [Runner.Phase] to drive progress displays.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhasePresenting     Phase = "presenting"
	PhaseAwaitingRating Phase = "awaiting_rating"
	PhaseScheduling     Phase = "scheduling"
	PhasePersisted      Phase = "persisted"
	PhaseSessionDone    Phase = "session_done"
)

// ErrNoSpeechStack is returned by RunShadow when the Runner was built
// without a synthesizer, recorder, or transcriber.
var ErrNoSpeechStack = errors.New("review: shadowing requires tts, recorder, and stt")

// Recorder captures one attempt from the learner's microphone and returns
// the path of the written audio file.
type Recorder interface {
	Record(ctx context.Context) (audioPath string, err error)
}

// Attempt is the scored outcome of one shadowing attempt.
type Attempt struct {
	// Transcript is what the speech recogniser heard.
	Transcript string

	// Score is the 0-100 similarity against the reference text.
	Score float64

	// Grade buckets the score using the Runner's thresholds.
	Grade scoring.Grade

	// Alignment details which reference words were hit, missed, and which
	// attempt words were extraneous.
	Alignment scoring.Alignment
}

// Prompter is the learner-facing side of a session. Implementations live at
// the presentation layer (terminal, TUI); the Runner never prints.
type Prompter interface {
	// Present shows the item to the learner. refAudioPath is the synthesized
	// native-speaker audio, or empty when no TTS is configured.
	Present(ctx context.Context, item vocab.Item, refAudioPath string) error

	// Rate collects the learner's 0-5 recall rating for the item.
	Rate(ctx context.Context, item vocab.Item) (srs.Quality, error)

	// ShowAttempt displays a scored shadowing attempt before rating.
	ShowAttempt(ctx context.Context, reference string, att Attempt) error

	// ConfirmAdd asks whether a poorly-scored phrase should be added to the
	// vocabulary for future review.
	ConfirmAdd(ctx context.Context, phrase string, score float64) (bool, error)
}

// ItemError records a per-item failure that did not stop the session.
type ItemError struct {
	// ItemID identifies the affected item.
	ItemID int64

	// Stage names the pipeline step that failed: "stt", "rate", "schedule",
	// or "persist".
	Stage string

	// Err is the underlying failure.
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %s: %v", e.ItemID, e.Stage, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Summary is the outcome of one review session.
type Summary struct {
	// Processed counts items that were fully reviewed and persisted.
	Processed int

	// Remembered and Forgot split Processed by rating outcome.
	Remembered int
	Forgot     int

	// Errors holds the per-item failures of skipped items. A non-empty
	// Errors with a nil session error means the session finished degraded.
	Errors []ItemError
}

// Option configures a Runner.
type Option func(*Runner)

// WithScheduler overrides the default scheduling parameters.
func WithScheduler(p srs.Params) Option {
	return func(r *Runner) { r.params = p }
}

// WithThresholds overrides the default grade thresholds.
func WithThresholds(t scoring.Thresholds) Option {
	return func(r *Runner) { r.thresholds = t }
}

// WithSpeech wires the speech stack for shadowing: synthesized reference
// audio, microphone capture, and transcription. Any of the three may be nil;
// shadowing degrades accordingly (no reference audio, or text-only review).
func WithSpeech(synth tts.Synthesizer, rec Recorder, trans stt.Transcriber) Option {
	return func(r *Runner) {
		r.synth = synth
		r.recorder = rec
		r.transcriber = trans
	}
}

// WithMetrics overrides the default metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides the time source used to anchor due dates.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner drives review sessions against a store. Construct with [NewRunner];
// a zero Runner is not usable.
type Runner struct {
	store    vocab.Store
	prompter Prompter

	params     srs.Params
	thresholds scoring.Thresholds

	synth       tts.Synthesizer
	recorder    Recorder
	transcriber stt.Transcriber

	metrics *observe.Metrics
	now     func() time.Time

	mu    sync.Mutex
	phase Phase
}

// NewRunner creates a Runner over the given store and prompter.
func NewRunner(store vocab.Store, prompter Prompter, opts ...Option) (*Runner, error) {
	if store == nil {
		return nil, errors.New("review: store must not be nil")
	}
	if prompter == nil {
		return nil, errors.New("review: prompter must not be nil")
	}

	r := &Runner{
		store:      store,
		prompter:   prompter,
		params:     srs.DefaultParams(),
		thresholds: scoring.DefaultThresholds(),
		now:        time.Now,
		phase:      PhaseIdle,
	}
	for _, o := range opts {
		o(r)
	}
	if err := r.params.Validate(); err != nil {
		return nil, err
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r, nil
}

// Phase returns the Runner's current session phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

// Run executes one review session over all currently due items. Per-item
// failures are collected in the Summary and do not abort the session; a
// non-nil error is returned only when the session itself cannot proceed
// (due-item query failure or cancelled context).
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	defer r.setPhase(PhaseSessionDone)

	due, err := r.store.DueItems(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("review: load due items: %w", err)
	}

	var sum Summary
	for _, item := range due {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("review: session cancelled: %w", err)
		}
		if itemErr := r.reviewItem(ctx, item, &sum); itemErr != nil {
			observe.Logger(ctx).Warn("item skipped",
				"item_id", itemErr.ItemID,
				"stage", itemErr.Stage,
				"error", itemErr.Err,
			)
			r.metrics.RecordSessionError(ctx, itemErr.Stage)
			sum.Errors = append(sum.Errors, *itemErr)
		}
	}
	return sum, nil
}

// reviewItem runs the full pipeline for one item. It returns nil on success
// and an ItemError naming the failed stage otherwise.
func (r *Runner) reviewItem(ctx context.Context, item vocab.Item, sum *Summary) *ItemError {
	ctx, span := observe.StartSpan(ctx, "review.item",
		trace.WithAttributes(
			attribute.Int64("item.id", item.ID),
			attribute.String("item.kind", string(item.Kind)),
			attribute.Int("item.stage", item.Stage),
		),
	)
	defer span.End()

	started := r.now()

	// Presenting — synthesize reference audio when TTS is available. A TTS
	// failure downgrades to text-only presentation rather than skipping the
	// item.
	r.setPhase(PhasePresenting)
	refAudio := ""
	if r.synth != nil {
		path, err := r.timedSynthesize(ctx, item.Content)
		if err != nil {
			observe.Logger(ctx).Warn("reference audio unavailable", "item_id", item.ID, "error", err)
			r.metrics.RecordProviderError(ctx, "tts", "synthesize")
		} else {
			refAudio = path
		}
	}
	if err := r.prompter.Present(ctx, item, refAudio); err != nil {
		return &ItemError{ItemID: item.ID, Stage: "present", Err: err}
	}

	// Shadowing attempt when the full speech stack is wired. An attempt
	// failure is reported but the learner can still self-rate.
	if r.recorder != nil && r.transcriber != nil {
		att, err := r.attempt(ctx, item.Content)
		if err != nil {
			observe.Logger(ctx).Warn("shadowing attempt failed", "item_id", item.ID, "error", err)
			r.metrics.RecordSessionError(ctx, "stt")
		} else if err := r.prompter.ShowAttempt(ctx, item.Content, att); err != nil {
			return &ItemError{ItemID: item.ID, Stage: "present", Err: err}
		}
	}

	// AwaitingRating.
	r.setPhase(PhaseAwaitingRating)
	q, err := r.prompter.Rate(ctx, item)
	if err != nil {
		return &ItemError{ItemID: item.ID, Stage: "rate", Err: err}
	}

	// Scheduling.
	r.setPhase(PhaseScheduling)
	res, err := r.params.Advance(item.Stage, q, item.IntervalDays, r.now())
	if err != nil {
		return &ItemError{ItemID: item.ID, Stage: "schedule", Err: err}
	}

	// Persisting.
	if err := r.store.UpdateReview(ctx, item.ID, q, res.NextReview, res.Stage, res.IntervalDays); err != nil {
		return &ItemError{ItemID: item.ID, Stage: "persist", Err: err}
	}
	r.setPhase(PhasePersisted)

	outcome := "remembered"
	if q.Passed() {
		sum.Remembered++
	} else {
		sum.Forgot++
		outcome = "forgot"
	}
	sum.Processed++
	r.metrics.RecordReview(ctx, string(item.Kind), outcome, r.now().Sub(started).Seconds())
	return nil
}

// attempt records and transcribes one shadowing attempt and scores it
// against reference.
func (r *Runner) attempt(ctx context.Context, reference string) (Attempt, error) {
	audioPath, err := r.recorder.Record(ctx)
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}

	result, err := r.timedTranscribe(ctx, audioPath)
	if err != nil {
		r.metrics.RecordProviderError(ctx, "stt", "transcribe")
		return Attempt{}, fmt.Errorf("transcribe attempt: %w", err)
	}

	score := scoring.Score(reference, result.Text)
	r.metrics.PronunciationScore.Record(ctx, score)

	return Attempt{
		Transcript: result.Text,
		Score:      score,
		Grade:      scoring.GradeFor(score, r.thresholds),
		Alignment:  scoring.AlignWords(reference, result.Text),
	}, nil
}

// timedSynthesize wraps Synthesize with a latency metric.
func (r *Runner) timedSynthesize(ctx context.Context, text string) (string, error) {
	started := r.now()
	path, err := r.synth.Synthesize(ctx, text)
	r.metrics.TTSDuration.Record(ctx, r.now().Sub(started).Seconds())
	return path, err
}

// timedTranscribe wraps Transcribe with a latency metric.
func (r *Runner) timedTranscribe(ctx context.Context, audioPath string) (stt.Result, error) {
	started := r.now()
	res, err := r.transcriber.Transcribe(ctx, audioPath)
	r.metrics.STTDuration.Record(ctx, r.now().Sub(started).Seconds())
	return res, err
}
