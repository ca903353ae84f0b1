// Package mock provides test doubles for the stt package interfaces.
//
// Use Transcriber to feed controlled transcription results to code under
// test and inspect which audio files were submitted:
//
//	m := &mock.Transcriber{Result: stt.Result{Text: "नमस्ते"}}
//	res, _ := m.Transcribe(ctx, "/tmp/a.wav")
package mock

import (
	"context"
	"sync"

	"github.com/riyaazhq/riyaaz/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// AudioPath is the file path passed to Transcribe.
	AudioPath string
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned from every Transcribe call when TranscribeFunc is
	// nil and Err is nil.
	Result stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if non-nil, overrides Result/Err entirely and is
	// invoked per call. Useful for returning different text per file.
	TranscribeFunc func(ctx context.Context, audioPath string) (stt.Result, error)

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (stt.Result, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, TranscribeCall{Ctx: ctx, AudioPath: audioPath})
	fn := t.TranscribeFunc
	res, err := t.Result, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, audioPath)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return res, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
