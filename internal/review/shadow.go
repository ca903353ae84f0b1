package review

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riyaazhq/riyaaz/internal/observe"
	"github.com/riyaazhq/riyaaz/internal/vocab"
)

// ShadowResult is the outcome of one ad-hoc shadowing exercise.
type ShadowResult struct {
	// Attempt is the scored attempt.
	Attempt Attempt

	// Added is true when the phrase was saved to the vocabulary for
	// scheduled review.
	Added bool

	// ItemID is the id of the saved item when Added is true.
	ItemID int64
}

// RunShadow runs one shadowing exercise over an arbitrary phrase, outside
// any scheduled session: play the reference (when TTS is wired), record the
// learner's imitation, transcribe and score it. When the score falls below
// the "good" threshold the learner is offered to add the phrase to the
// vocabulary so it enters the review schedule.
//
// Requires a recorder and a transcriber; returns [ErrNoSpeechStack]
// otherwise. A missing or failing synthesizer only drops the reference
// audio.
func (r *Runner) RunShadow(ctx context.Context, text string) (ShadowResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ShadowResult{}, fmt.Errorf("review: shadow: %w", vocab.ErrEmptyContent)
	}
	if r.recorder == nil || r.transcriber == nil {
		return ShadowResult{}, ErrNoSpeechStack
	}

	ctx, span := observe.StartSpan(ctx, "review.shadow",
		trace.WithAttributes(attribute.Int("phrase.length", len([]rune(text)))),
	)
	defer span.End()

	refAudio := ""
	if r.synth != nil {
		path, err := r.timedSynthesize(ctx, text)
		if err != nil {
			observe.Logger(ctx).Warn("reference audio unavailable", "error", err)
			r.metrics.RecordProviderError(ctx, "tts", "synthesize")
		} else {
			refAudio = path
		}
	}
	phrase := vocab.Item{Kind: vocab.KindWord, Content: text}
	if err := r.prompter.Present(ctx, phrase, refAudio); err != nil {
		return ShadowResult{}, fmt.Errorf("review: shadow: present: %w", err)
	}

	att, err := r.attempt(ctx, text)
	if err != nil {
		return ShadowResult{}, fmt.Errorf("review: shadow: %w", err)
	}
	if err := r.prompter.ShowAttempt(ctx, text, att); err != nil {
		return ShadowResult{}, fmt.Errorf("review: shadow: present: %w", err)
	}

	res := ShadowResult{Attempt: att}
	if att.Score >= r.thresholds.Good {
		return res, nil
	}

	add, err := r.prompter.ConfirmAdd(ctx, text, att.Score)
	if err != nil {
		return ShadowResult{}, fmt.Errorf("review: shadow: confirm add: %w", err)
	}
	if !add {
		return res, nil
	}

	id, err := r.store.AddItem(ctx, vocab.Draft{Kind: vocab.KindWord, Content: text})
	if err != nil {
		return ShadowResult{}, fmt.Errorf("review: shadow: save phrase: %w", err)
	}
	r.metrics.ItemsAdded.Add(ctx, 1)
	res.Added = true
	res.ItemID = id
	return res, nil
}
