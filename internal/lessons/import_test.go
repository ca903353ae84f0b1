package lessons_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/riyaazhq/riyaaz/internal/lessons"
	"github.com/riyaazhq/riyaaz/internal/vocab"
	translatemock "github.com/riyaazhq/riyaaz/pkg/provider/translate/mock"
)

const sampleVTT = `WEBVTT - Hindi lesson 3

NOTE auto-generated captions

1
00:00:01.000 --> 00:00:04.500
नमस्ते, आप कैसे हैं?

2
00:00:05.000 --> 00:00:08.200 align:start
<v Teacher>मैं ठीक हूँ,
धन्यवाद।

3
00:00:09.000 --> 00:00:10.000

`

func TestImportWebVTT(t *testing.T) {
	t.Parallel()

	store := vocab.NewMemStore()
	im, err := lessons.NewImporter(store)
	if err != nil {
		t.Fatalf("NewImporter() error: %v", err)
	}

	src := lessons.Source{URL: "https://youtu.be/abc123", Title: "Hindi lesson 3"}
	n, err := im.ImportWebVTT(context.Background(), src, strings.NewReader(sampleVTT))
	if err != nil {
		t.Fatalf("ImportWebVTT() error: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d segments, want 2 (empty cue skipped)", n)
	}

	items, err := store.LessonsBySource(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("LessonsBySource(): %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if first.Kind != vocab.KindLesson {
		t.Errorf("Kind = %q, want lesson", first.Kind)
	}
	if first.Content != "नमस्ते, आप कैसे हैं?" {
		t.Errorf("Content = %q", first.Content)
	}
	if first.Annotations.SegmentStart != 1.0 || first.Annotations.SegmentEnd != 4.5 {
		t.Errorf("segment = [%v,%v], want [1,4.5]",
			first.Annotations.SegmentStart, first.Annotations.SegmentEnd)
	}
	if first.Annotations.SourceTitle != "Hindi lesson 3" {
		t.Errorf("SourceTitle = %q", first.Annotations.SourceTitle)
	}

	// multi-line cue is joined, speaker tag and settings stripped
	second := items[1]
	if second.Content != "मैं ठीक हूँ, धन्यवाद।" {
		t.Errorf("Content = %q, want joined cue text", second.Content)
	}
	if second.Annotations.SegmentStart != 5.0 {
		t.Errorf("SegmentStart = %v, want 5", second.Annotations.SegmentStart)
	}
}

func TestImportWebVTT_Translation(t *testing.T) {
	t.Parallel()

	tr := &translatemock.Translator{
		TranslateFunc: func(_ context.Context, text, from, to string) (string, error) {
			if from != "hi" || to != "en" {
				t.Errorf("Translate(%q, %q), want hi→en", from, to)
			}
			return "translated: " + text, nil
		},
	}

	store := vocab.NewMemStore()
	im, err := lessons.NewImporter(store, lessons.WithTranslator(tr))
	if err != nil {
		t.Fatalf("NewImporter() error: %v", err)
	}

	src := lessons.Source{URL: "https://youtu.be/abc123", Title: "Hindi lesson 3"}
	if _, err := im.ImportWebVTT(context.Background(), src, strings.NewReader(sampleVTT)); err != nil {
		t.Fatalf("ImportWebVTT() error: %v", err)
	}

	items, err := store.LessonsBySource(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("LessonsBySource(): %v", err)
	}
	if items[0].Annotations.Translation != "translated: नमस्ते, आप कैसे हैं?" {
		t.Errorf("Translation = %q", items[0].Annotations.Translation)
	}
}

func TestImportWebVTT_TranslationFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	tr := &translatemock.Translator{Err: errors.New("service down")}
	store := vocab.NewMemStore()
	im, err := lessons.NewImporter(store, lessons.WithTranslator(tr))
	if err != nil {
		t.Fatalf("NewImporter() error: %v", err)
	}

	src := lessons.Source{URL: "https://youtu.be/abc123"}
	n, err := im.ImportWebVTT(context.Background(), src, strings.NewReader(sampleVTT))
	if err != nil {
		t.Fatalf("ImportWebVTT() error: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2 despite translation failures", n)
	}

	items, err := store.LessonsBySource(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("LessonsBySource(): %v", err)
	}
	if items[0].Annotations.Translation != "" {
		t.Errorf("Translation = %q, want empty", items[0].Annotations.Translation)
	}
}

func TestImportWebVTT_Malformed(t *testing.T) {
	t.Parallel()

	store := vocab.NewMemStore()
	im, err := lessons.NewImporter(store)
	if err != nil {
		t.Fatalf("NewImporter() error: %v", err)
	}
	src := lessons.Source{URL: "https://youtu.be/abc123"}

	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"not vtt", "1\n00:00:01,000 --> 00:00:02,000\nSRT not VTT\n"},
		{"bad timestamp", "WEBVTT\n\nxx:yy --> 00:00:02.000\ntext\n"},
		{"end before start", "WEBVTT\n\n00:00:05.000 --> 00:00:02.000\ntext\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := im.ImportWebVTT(context.Background(), src, strings.NewReader(tt.input)); err == nil {
				t.Errorf("ImportWebVTT(%q) error = nil, want parse error", tt.name)
			}
		})
	}
}

func TestImportWebVTT_EmptySourceURL(t *testing.T) {
	t.Parallel()

	im, err := lessons.NewImporter(vocab.NewMemStore())
	if err != nil {
		t.Fatalf("NewImporter() error: %v", err)
	}
	if _, err := im.ImportWebVTT(context.Background(), lessons.Source{}, strings.NewReader(sampleVTT)); err == nil {
		t.Error("ImportWebVTT(empty source) error = nil, want error")
	}
}
