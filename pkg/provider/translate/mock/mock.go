// Package mock provides test doubles for the translate package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/riyaazhq/riyaaz/pkg/provider/translate"
)

// TranslateCall records a single invocation of Translator.Translate.
type TranslateCall struct {
	// Ctx is the context passed to Translate.
	Ctx context.Context
	// Text, From, and To are the arguments passed to Translate.
	Text string
	From string
	To   string
}

// Translator is a mock implementation of translate.Translator.
type Translator struct {
	mu sync.Mutex

	// Result is returned from every Translate call when TranslateFunc is nil
	// and Err is nil.
	Result string

	// Err, if non-nil, is returned as the error from Translate.
	Err error

	// TranslateFunc, if non-nil, overrides Result/Err entirely.
	TranslateFunc func(ctx context.Context, text, from, to string) (string, error)

	// Calls records every call to Translate in order.
	Calls []TranslateCall
}

// Translate records the call and returns the configured result.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, TranslateCall{Ctx: ctx, Text: text, From: from, To: to})
	fn := t.TranslateFunc
	res, err := t.Result, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, from, to)
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

// Reset clears all recorded calls. Thread-safe.
func (t *Translator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}

// Ensure Translator implements translate.Translator at compile time.
var _ translate.Translator = (*Translator)(nil)
