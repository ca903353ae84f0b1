package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/riyaazhq/riyaaz/internal/review"
)

// micRecorder captures one attempt from the microphone using the ALSA
// "arecord" tool: 16 kHz mono signed 16-bit, the format the whisper backends
// expect. Recording runs until the learner presses Enter.
type micRecorder struct {
	in  *bufio.Reader
	out io.Writer
}

func newMicRecorder(in io.Reader, out io.Writer) *micRecorder {
	return &micRecorder{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (r *micRecorder) Record(ctx context.Context) (string, error) {
	tool, err := exec.LookPath("arecord")
	if err != nil {
		return "", fmt.Errorf("record: arecord not found: %w", err)
	}

	f, err := os.CreateTemp("", "riyaaz-attempt-*.wav")
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	cmd := exec.CommandContext(ctx, tool, "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", path)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("record: start arecord: %w", err)
	}

	fmt.Fprint(r.out, "Recording… press Enter to stop. ")
	if _, err := r.in.ReadString('\n'); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		os.Remove(path)
		return "", fmt.Errorf("record: %w", err)
	}

	// arecord finalises the WAV header on SIGINT.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	if err := cmd.Wait(); err != nil && ctx.Err() != nil {
		os.Remove(path)
		return "", fmt.Errorf("record: %w", ctx.Err())
	}
	return path, nil
}

var _ review.Recorder = (*micRecorder)(nil)
