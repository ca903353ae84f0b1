// Package anyllm implements translate.Translator on top of
// github.com/mozilla-ai/any-llm-go, a unified chat-completion client for
// OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, and Groq.
//
// Any instruction-following chat model can gloss a Hindi phrase in English,
// so one wrapper covers hosted APIs and local Ollama alike:
//
//	tr, err := anyllm.New("ollama", "llama3")
//	tr, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/riyaazhq/riyaaz/pkg/provider/translate"
)

// systemPrompt pins the model to bare translations. Transliterations and
// commentary would otherwise leak into the stored gloss.
const systemPrompt = "You are a translation engine for a language learner. " +
	"Reply with the translation only: no transliteration, no notes, no quotation marks."

// maxReplyTokens caps the completion; a gloss for a single phrase never
// needs more.
const maxReplyTokens = 256

// Translator glosses text via a chat completion against the configured
// backend.
type Translator struct {
	backend anyllmlib.Provider
	model   string
}

// Ensure Translator implements translate.Translator at compile time.
var _ translate.Translator = (*Translator)(nil)

// New creates a Translator backed by the named LLM vendor.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq". model names the chat model to use
// (e.g., "gpt-4o-mini", "llama3").
//
// opts configure the backend (anyllmlib.WithAPIKey, anyllmlib.WithBaseURL).
// Without an API key option the backend falls back to its usual environment
// variable; Ollama needs no key at all.
func New(providerName, model string, opts ...anyllmlib.Option) (*Translator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Translator{backend: backend, model: model}, nil
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("anyllm: translate: text must not be empty")
	}

	resp, err := t.backend.Completion(ctx, t.buildParams(text, from, to))
	if err != nil {
		return "", fmt.Errorf("anyllm: translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: translate: empty choices in response")
	}

	out := cleanReply(resp.Choices[0].Message.ContentString())
	if out == "" {
		return "", fmt.Errorf("anyllm: translate: model returned no translation")
	}
	return out, nil
}

// buildParams assembles the completion request for one translation.
func (t *Translator) buildParams(text, from, to string) anyllmlib.CompletionParams {
	temperature := 0.2
	maxTokens := maxReplyTokens

	return anyllmlib.CompletionParams{
		Model: t.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: fmt.Sprintf(
				"Translate the following %s text into %s:\n\n%s",
				languageName(from), languageName(to), text)},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

// createBackend creates the underlying any-llm-go provider for the given
// vendor name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq", providerName)
	}
}

// cleanReply strips whitespace and a single layer of wrapping quotes. Chat
// models quote translations despite the system prompt often enough to handle
// it here.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"\u201c", "\u201d"}}
	for _, p := range pairs {
		if len(s) > len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}

// languageName spells out the BCP-47 codes the trainer uses; prompts with
// full language names steer small local models better than bare codes.
func languageName(code string) string {
	switch strings.ToLower(code) {
	case "hi":
		return "Hindi"
	case "en":
		return "English"
	case "ur":
		return "Urdu"
	case "pa":
		return "Punjabi"
	default:
		return code
	}
}
