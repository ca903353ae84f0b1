// Package translate defines the Translator interface for machine-translation
// backends. Translation is used when importing lesson segments, to prefill an
// English gloss for each Hindi phrase; it never gates a review.
package translate

import "context"

// Translator is the abstraction over any machine-translation backend.
type Translator interface {
	// Translate renders text from the source language into the target
	// language, both given as BCP-47 codes (e.g., "hi", "en").
	Translate(ctx context.Context, text, from, to string) (string, error)
}
