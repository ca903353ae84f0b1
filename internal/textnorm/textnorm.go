// Package textnorm normalizes text for pronunciation comparison.
//
// Speech recognition output and reference phrases disagree on punctuation,
// casing, and spacing long before they disagree on words. Normalize strips
// this variance so that the scorer and the aligner compare only what was
// actually spoken. The rules are Unicode-aware: Devanagari has no case, but
// it does carry punctuation (the danda "।", abbreviation sign, etc.) that
// Whisper sometimes emits and sometimes drops, and nukta consonants such as
// क़ have two codepoint spellings (precomposed U+0958 and क + U+093C) that
// must compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Zero-width joiners control conjunct rendering but carry no pronunciation;
// transcripts include them inconsistently.
const (
	zwnj = '‌'
	zwj  = '‍'
)

// Normalize canonicalizes text for comparison: it applies Unicode NFC (so
// precomposed and decomposed nukta consonants spell alike), lowercases (a
// no-op for scripts without case), drops zero-width joiners and all
// punctuation and symbol runes, collapses whitespace runs to single spaces,
// and trims the ends. Normalize("") returns "". Pure and deterministic.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(norm.NFC.String(text)) {
		if r == zwnj || r == zwj {
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeWord normalizes a single word for equality comparison: NFC,
// lowercase, zero-width joiners dropped, and leading and trailing
// punctuation stripped. Interior punctuation stays, so "co-op" survives
// while "नमस्ते," matches "नमस्ते"; the surface form shown to the learner
// keeps its punctuation either way.
func NormalizeWord(word string) string {
	w := strings.Map(func(r rune) rune {
		if r == zwnj || r == zwj {
			return -1
		}
		return r
	}, strings.ToLower(norm.NFC.String(word)))

	return strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
