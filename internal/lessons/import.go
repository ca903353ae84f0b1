// Package lessons imports subtitle files as reviewable lesson segments.
//
// A WebVTT file from a Hindi video is cut into one lesson item per cue: the
// cue text becomes the content to shadow, the cue timing is kept so the
// learner can jump back into the source video. When a translator is
// configured each segment also gets an English line.
package lessons

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/riyaazhq/riyaaz/internal/observe"
	"github.com/riyaazhq/riyaaz/internal/vocab"
	"github.com/riyaazhq/riyaaz/pkg/provider/translate"
)

// Source identifies the video a subtitle file belongs to.
type Source struct {
	// URL identifies the video. All segments of one import share it.
	URL string

	// Title is the human-readable video title shown in listings.
	Title string
}

// Importer cuts subtitle files into lesson items.
type Importer struct {
	store      vocab.Store
	translator translate.Translator
}

// Option configures an Importer.
type Option func(*Importer)

// WithTranslator adds per-segment translation. Translation failures are
// logged and skipped; the segment is imported without a translation line.
func WithTranslator(t translate.Translator) Option {
	return func(im *Importer) { im.translator = t }
}

// NewImporter creates an Importer storing segments in store.
func NewImporter(store vocab.Store, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, fmt.Errorf("lessons: store must not be nil")
	}
	im := &Importer{store: store}
	for _, o := range opts {
		o(im)
	}
	return im, nil
}

// ImportWebVTT reads a WebVTT subtitle file from r and stores one lesson
// item per cue, all attributed to src. Cues with empty text are skipped.
//
// The import is best-effort: if a segment cannot be stored the error is
// returned together with the count of segments imported so far.
func (im *Importer) ImportWebVTT(ctx context.Context, src Source, r io.Reader) (int, error) {
	if strings.TrimSpace(src.URL) == "" {
		return 0, fmt.Errorf("lessons: source url must not be empty")
	}

	cues, err := parseWebVTT(r)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, cue := range cues {
		ann := vocab.Annotations{
			SourceURL:    src.URL,
			SourceTitle:  src.Title,
			SegmentStart: cue.start,
			SegmentEnd:   cue.end,
		}
		if im.translator != nil {
			tr, err := im.translator.Translate(ctx, cue.text, "hi", "en")
			if err != nil {
				observe.Logger(ctx).Warn("segment translation failed",
					"source_url", src.URL, "segment_start", cue.start, "error", err)
			} else {
				ann.Translation = tr
			}
		}

		_, err := im.store.AddItem(ctx, vocab.Draft{
			Kind:        vocab.KindLesson,
			Content:     cue.text,
			Annotations: ann,
		})
		if err != nil {
			return imported, fmt.Errorf("lessons: import segment at %.1fs: %w", cue.start, err)
		}
		imported++
	}
	return imported, nil
}

// cue is one parsed subtitle cue.
type cue struct {
	start float64
	end   float64
	text  string
}

// parseWebVTT reads the cues of a WebVTT file. Header blocks (STYLE, NOTE,
// REGION), cue identifiers, and cue settings are ignored; only timings and
// text survive.
func parseWebVTT(r io.Reader) ([]cue, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, fmt.Errorf("lessons: empty subtitle file")
	}
	// The header line may carry a BOM and trailing text ("WEBVTT - notes").
	header := strings.TrimPrefix(strings.TrimSpace(sc.Text()), "\ufeff")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, fmt.Errorf("lessons: not a webvtt file (header %q)", header)
	}

	var cues []cue
	var current *cue
	var textLines []string

	flush := func() {
		if current != nil {
			text := strings.TrimSpace(strings.Join(textLines, " "))
			if text != "" {
				current.text = text
				cues = append(cues, *current)
			}
		}
		current = nil
		textLines = nil
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseCueTiming(line)
			if err != nil {
				return nil, err
			}
			current = &cue{start: start, end: end}
		case current != nil:
			textLines = append(textLines, stripCueTags(line))
		}
		// Anything else (cue ids, NOTE/STYLE blocks) is skipped.
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lessons: read subtitle file: %w", err)
	}
	flush()

	return cues, nil
}

// parseCueTiming parses a "00:00:01.000 --> 00:00:04.500" line. Cue settings
// after the end timestamp are ignored.
func parseCueTiming(line string) (start, end float64, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("lessons: malformed cue timing %q", line)
	}
	start, err = parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("lessons: malformed cue timing %q", line)
	}
	end, err = parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("lessons: cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// parseTimestamp converts "hh:mm:ss.mmm" or "mm:ss.mmm" to seconds.
func parseTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("lessons: malformed timestamp %q", ts)
	}

	secs := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("lessons: malformed timestamp %q", ts)
		}
		secs = secs*60 + v
	}
	return secs, nil
}

// stripCueTags removes WebVTT cue markup (<v Speaker>, <i>, timestamps tags)
// using a simple state machine. It is intentionally minimal, not a full
// parser, but sufficient for the subtitle files video platforms export.
func stripCueTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
