// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber wraps a batch transcription engine (a local whisper.cpp
// server or the whisper.cpp CGO bindings) and converts a recorded audio file
// into text. Shadowing practice records one short utterance at a time, so the
// interface is file-based rather than streaming: the recorder finishes
// writing a WAV file, then the whole file is submitted for inference.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Result is the outcome of transcribing one audio file.
type Result struct {
	// Text is the transcribed speech content. May be empty if the audio
	// contained no recognisable speech.
	Text string

	// Language is the language the backend detected or was configured with,
	// as a BCP-47 code (e.g., "hi"). May be empty if the backend does not
	// report it.
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe reads the audio file at audioPath (16-bit PCM WAV) and
	// returns the recognised text. Errors from the backend are returned
	// as-is; callers decide whether a failed attempt is retried or the
	// review item is skipped.
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}
