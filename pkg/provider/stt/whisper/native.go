// This file contains the NativeTranscriber implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/riyaazhq/riyaaz/pkg/provider/stt"
)

// modelSampleRate is the only sample rate whisper.cpp models accept.
const modelSampleRate = 16000

// Compile-time assertion that NativeTranscriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*NativeTranscriber)(nil)

// NativeTranscriber implements stt.Transcriber using the whisper.cpp Go
// bindings (CGO), eliminating HTTP overhead entirely. The model is loaded
// once at construction and shared across calls; each Transcribe call creates
// its own whisper context, so concurrent calls are safe.
type NativeTranscriber struct {
	model    whisperlib.Model
	language string

	// mu serialises context creation; whisper contexts are per-call but
	// model initialisation inside the bindings is not reentrant.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a NativeTranscriber.
type NativeOption func(*NativeTranscriber)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "hi", "en"). Defaults to "hi".
func WithNativeLanguage(lang string) NativeOption {
	return func(t *NativeTranscriber) { t.language = lang }
}

// NewNative creates a NativeTranscriber that loads the whisper.cpp model from
// the given file path. The caller must call Close when the transcriber is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeTranscriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &NativeTranscriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *NativeTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file at audioPath, runs whisper.cpp inference,
// and returns the concatenated segment text.
func (t *NativeTranscriber) Transcribe(ctx context.Context, audioPath string) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: %w", err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read audio file: %w", err)
	}
	info, err := decodeWAV(data)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: decode %q: %w", audioPath, err)
	}
	if info.SampleRate != modelSampleRate {
		return stt.Result{}, fmt.Errorf("whisper: audio sample rate %d Hz, model requires %d Hz", info.SampleRate, modelSampleRate)
	}
	samples := pcmToFloat32Mono(info.PCM, info.Channels)

	t.mu.Lock()
	wctx, err := t.model.NewContext()
	t.mu.Unlock()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", t.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(segment.Text))
	}

	return stt.Result{Text: strings.Join(parts, " "), Language: t.language}, nil
}
