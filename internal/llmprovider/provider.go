// Package llmprovider adapts multiple LLM providers behind a single
// interface that returns structured-JSON replies, plus the provider
// selection policy shared by the enricher and fix synthesizer.
package llmprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/reliabot/agent/internal/config"
)

// Client generates a single completion from a prompt and returns the
// raw reply text. Extraction and schema validation of that text is the
// caller's responsibility (see ExtractJSON).
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Keys reports which provider API keys are available.
type Keys struct {
	OpenAI    string
	Anthropic string
	Gemini    string
}

// resolutionOrder is the fixed fallback order for ProviderAuto.
var resolutionOrder = []config.LLMProviderPref{
	config.ProviderOpenAI,
	config.ProviderAnthropic,
	config.ProviderGemini,
}

// Resolve picks a provider name per spec.md §4.2: an explicit
// preference requires its matching key or resolves to "", pref=auto
// walks resolutionOrder picking the first available key. The returned
// string is empty when no provider is available.
func Resolve(pref config.LLMProviderPref, keys Keys) config.LLMProviderPref {
	if pref != "" && pref != config.ProviderAuto {
		if available(pref, keys) {
			return pref
		}
		return ""
	}
	for _, p := range resolutionOrder {
		if available(p, keys) {
			return p
		}
	}
	return ""
}

func available(pref config.LLMProviderPref, keys Keys) bool {
	switch pref {
	case config.ProviderOpenAI:
		return keys.OpenAI != ""
	case config.ProviderAnthropic:
		return keys.Anthropic != ""
	case config.ProviderGemini:
		return keys.Gemini != ""
	default:
		return false
	}
}

// NewClient constructs a Client for the resolved provider. cfg supplies
// per-provider model identifiers; keys supplies the API keys.
func NewClient(provider config.LLMProviderPref, cfg config.Config, keys Keys) (Client, error) {
	switch provider {
	case config.ProviderOpenAI:
		return newOpenAIClient(keys.OpenAI, orDefault(cfg.OpenAIModel, "gpt-4o-mini")), nil
	case config.ProviderAnthropic:
		return newAnthropicClient(keys.Anthropic, orDefault(cfg.AnthropicModel, "claude-3-5-sonnet-20241022")), nil
	case config.ProviderGemini:
		return newGeminiClient(keys.Gemini, orDefault(cfg.GeminiModel, "gemini-1.5-flash"))
	default:
		return nil, fmt.Errorf("llmprovider: no provider available")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ExtractJSON extracts the substring from the first '{' to the last
// '}' in reply, tolerating a provider wrapping pure JSON in free text
// (markdown fences, leading prose). Returns false if no braces found.
func ExtractJSON(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return reply[start : end+1], true
}
