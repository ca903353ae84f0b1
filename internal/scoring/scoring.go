// Package scoring compares a reference utterance against a recognized
// transcript and produces two independent signals:
//
//  1. A numeric 0–100 similarity score computed from character-level
//     Levenshtein distance over the normalized strings. Characters, not
//     words, because Hindi transcripts do not tokenize reliably at word
//     granularity — a dropped matra should cost one edit, not one word.
//
//  2. A word-level alignment used to highlight what the learner missed or
//     added. The alignment is a deliberately greedy left-to-right match:
//     each reference word claims the first not-yet-claimed attempt word
//     whose normalized form is equal. This is not an optimal aligner and
//     must stay that way — the numeric score is the authoritative signal,
//     and the highlighting is meant to follow left-to-right reading
//     intuition, not to minimize global mismatch count.
package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/riyaazhq/riyaaz/internal/textnorm"
)

// Score returns a similarity score in [0,100] between the reference phrase
// and the attempt transcript. Both inputs are normalized first. Two empty
// strings score 100 (vacuous match); exactly one empty string scores 0.
// Otherwise the score is the normalized Levenshtein similarity over runes,
// rounded to one decimal place.
func Score(reference, attempt string) float64 {
	ref := textnorm.Normalize(reference)
	att := textnorm.Normalize(attempt)

	if ref == "" && att == "" {
		return 100.0
	}
	if ref == "" || att == "" {
		return 0.0
	}

	dist := matchr.Levenshtein(ref, att)
	maxLen := utf8.RuneCountInString(ref)
	if n := utf8.RuneCountInString(att); n > maxLen {
		maxLen = n
	}

	similarity := 1.0 - float64(dist)/float64(maxLen)
	return math.Round(similarity*1000) / 10
}

// Word is a whitespace-delimited token with its position in the original
// sequence. Text keeps the surface form so callers can display it verbatim.
type Word struct {
	Index int
	Text  string
}

// Pair joins a reference word with the attempt word it matched.
type Pair struct {
	Reference Word
	Attempt   Word
}

// Alignment is the word-level match map between a reference phrase and an
// attempt transcript.
type Alignment struct {
	// Matched holds reference/attempt word pairs whose normalized forms are
	// equal, in reference order.
	Matched []Pair

	// MissedReference holds reference words with no matching attempt word,
	// in reference order. Displayed as missed.
	MissedReference []Word

	// Extra holds attempt words that matched no reference word, in attempt
	// order. Displayed as extraneous.
	Extra []Word
}

// AlignWords computes the greedy left-to-right word alignment between
// reference and attempt. Both are split on whitespace; each word is
// normalized for comparison only. For every reference word, in order, the
// attempt words are scanned left to right skipping positions already
// claimed, and the first position with an equal normalized form wins.
func AlignWords(reference, attempt string) Alignment {
	refWords := strings.Fields(reference)
	attWords := strings.Fields(attempt)

	attNorm := make([]string, len(attWords))
	for i, w := range attWords {
		attNorm[i] = textnorm.NormalizeWord(w)
	}

	var a Alignment
	claimed := make([]bool, len(attWords))

	for i, rw := range refWords {
		rn := textnorm.NormalizeWord(rw)
		found := false
		for j := range attWords {
			if claimed[j] || attNorm[j] != rn {
				continue
			}
			claimed[j] = true
			a.Matched = append(a.Matched, Pair{
				Reference: Word{Index: i, Text: rw},
				Attempt:   Word{Index: j, Text: attWords[j]},
			})
			found = true
			break
		}
		if !found {
			a.MissedReference = append(a.MissedReference, Word{Index: i, Text: rw})
		}
	}

	for j, aw := range attWords {
		if !claimed[j] {
			a.Extra = append(a.Extra, Word{Index: j, Text: aw})
		}
	}

	return a
}

// Grade is a coarse quality bucket derived from the numeric score, used for
// learner-facing feedback.
type Grade string

const (
	GradeExcellent     Grade = "excellent"
	GradeGood          Grade = "good"
	GradeNeedsPractice Grade = "needs_practice"
	GradeKeepTrying    Grade = "keep_trying"
)

// Thresholds define the lower score bound of each grade bucket. Values are
// inclusive: a score equal to Excellent grades as excellent.
type Thresholds struct {
	Excellent float64
	Good      float64
	Poor      float64
}

// DefaultThresholds returns the standard grade boundaries (90/70/50).
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 90, Good: 70, Poor: 50}
}

// GradeFor buckets score according to th.
func GradeFor(score float64, th Thresholds) Grade {
	switch {
	case score >= th.Excellent:
		return GradeExcellent
	case score >= th.Good:
		return GradeGood
	case score >= th.Poor:
		return GradeNeedsPractice
	default:
		return GradeKeepTrying
	}
}
