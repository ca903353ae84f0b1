package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/riyaazhq/riyaaz/internal/observe"
	"github.com/riyaazhq/riyaaz/internal/review"
	"github.com/riyaazhq/riyaaz/internal/scoring"
	"github.com/riyaazhq/riyaaz/internal/srs"
	"github.com/riyaazhq/riyaaz/internal/vocab"
)

// terminalPrompter implements review.Prompter over stdin/stdout. Reference
// audio is played through the system "aplay" tool when available.
type terminalPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	player string
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	p := &terminalPrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
	if path, err := exec.LookPath("aplay"); err == nil {
		p.player = path
	}
	return p
}

func (p *terminalPrompter) Present(ctx context.Context, item vocab.Item, refAudioPath string) error {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "── %s ──\n", item.Content)
	if item.Annotations.Transliteration != "" {
		fmt.Fprintf(p.out, "   %s\n", item.Annotations.Transliteration)
	}
	if item.Annotations.Meaning != "" {
		fmt.Fprintf(p.out, "   %s\n", item.Annotations.Meaning)
	}
	if item.Kind == vocab.KindLesson && item.Annotations.SourceTitle != "" {
		fmt.Fprintf(p.out, "   from: %s\n", item.Annotations.SourceTitle)
	}

	if refAudioPath != "" {
		p.play(ctx, refAudioPath)
	}
	return nil
}

// play runs the reference audio through aplay. Playback problems are shown,
// never returned: the session must survive a missing sound card.
func (p *terminalPrompter) play(ctx context.Context, audioPath string) {
	if p.player == "" {
		observe.Logger(ctx).Debug("no audio player found, skipping playback")
		return
	}
	cmd := exec.CommandContext(ctx, p.player, "-q", audioPath)
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(p.out, "   (playback failed: %v)\n", err)
	}
}

func (p *terminalPrompter) Rate(ctx context.Context, _ vocab.Item) (srs.Quality, error) {
	for {
		fmt.Fprint(p.out, "How well did you remember? 0=forgot 3=hard 4=good 5=easy: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && srs.Quality(n).IsValid() {
			return srs.Quality(n), nil
		}
		fmt.Fprintln(p.out, "Please enter a number between 0 and 5.")
	}
}

func (p *terminalPrompter) ShowAttempt(_ context.Context, _ string, att review.Attempt) error {
	fmt.Fprintf(p.out, "You said:  %s\n", att.Transcript)
	fmt.Fprintf(p.out, "Score:     %.1f (%s)\n", att.Score, att.Grade)
	if len(att.Alignment.MissedReference) > 0 {
		fmt.Fprintf(p.out, "Missed:    %s\n", joinWords(att.Alignment.MissedReference))
	}
	if len(att.Alignment.Extra) > 0 {
		fmt.Fprintf(p.out, "Extra:     %s\n", joinWords(att.Alignment.Extra))
	}
	return nil
}

func joinWords(words []scoring.Word) string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return strings.Join(texts, " ")
}

func (p *terminalPrompter) ConfirmAdd(ctx context.Context, phrase string, score float64) (bool, error) {
	fmt.Fprintf(p.out, "Score %.1f is below target. Add %q to your vocabulary? [y/N]: ", score, phrase)
	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (p *terminalPrompter) printSummary(sum review.Summary) {
	fmt.Fprintln(p.out)
	if sum.Processed == 0 && len(sum.Errors) == 0 {
		fmt.Fprintln(p.out, "Nothing due today. शाबाश!")
		return
	}
	fmt.Fprintf(p.out, "Session done: %d reviewed (%d remembered, %d forgot)",
		sum.Processed, sum.Remembered, sum.Forgot)
	if len(sum.Errors) > 0 {
		fmt.Fprintf(p.out, ", %d skipped", len(sum.Errors))
	}
	fmt.Fprintln(p.out)
}

// readLine reads one line from stdin, honouring context cancellation. The
// read itself cannot be interrupted, so cancellation is checked before and
// after.
func (p *terminalPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return line, nil
}

var _ review.Prompter = (*terminalPrompter)(nil)
