// Package coqui provides a Coqui TTS-backed speech synthesizer that connects
// to a standard Coqui TTS server (ghcr.io/coqui-ai/tts-cpu) via its REST API.
// Synthesis is performed via GET /api/tts with URL query parameters; the
// returned WAV is written to a temp file for playback.
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("hi"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	path, err := s.Synthesize(ctx, "नमस्ते, आप कैसे हैं?")
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/riyaazhq/riyaaz/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Client)(nil)

const (
	defaultTimeout = 30 * time.Second
	apiTTSEndpoint = "/api/tts"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithLanguage sets the language_id query parameter sent to the TTS server
// (e.g., "hi", "en"). Required by multilingual models; single-language models
// ignore it. Empty by default.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithSpeaker sets the speaker_id query parameter for multi-speaker models.
// Empty by default.
func WithSpeaker(speakerID string) Option {
	return func(c *Client) { c.speakerID = speakerID }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOutputDir sets the directory synthesised WAV files are written to.
// Defaults to the system temp directory.
func WithOutputDir(dir string) Option {
	return func(c *Client) { c.outputDir = dir }
}

// Client implements tts.Synthesizer backed by a Coqui TTS HTTP server.
type Client struct {
	serverURL  string
	language   string
	speakerID  string
	outputDir  string
	httpClient *http.Client
}

// New creates a Client that connects to the Coqui TTS server at serverURL
// (e.g., "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		outputDir:  os.TempDir(),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Synthesize performs a single GET /api/tts request and writes the WAV
// response to a temp file in the configured output directory. The caller owns
// the returned file.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("coqui: text must not be empty")
	}

	params := url.Values{}
	params.Set("text", text)
	if c.speakerID != "" {
		params.Set("speaker_id", c.speakerID)
	}
	if c.language != "" {
		params.Set("language_id", c.language)
	}

	reqURL := c.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	f, err := os.CreateTemp(c.outputDir, "riyaaz-tts-*.wav")
	if err != nil {
		return "", fmt.Errorf("coqui: create output file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("coqui: write WAV response: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("coqui: close output file: %w", err)
	}
	return f.Name(), nil
}
