// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// Shadowing practice plays a native-speaker rendition of each phrase before
// the learner repeats it. The synthesizer turns the phrase text into an audio
// file on disk; audio playback is left to the caller.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the abstraction over any text-to-speech backend.
type Synthesizer interface {
	// Synthesize renders text as speech and returns the path of the written
	// audio file (16-bit PCM WAV). Callers own the file and should remove it
	// when done.
	Synthesize(ctx context.Context, text string) (audioPath string, err error)
}
