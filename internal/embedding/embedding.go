// Package embedding adapts multiple embedding providers behind a
// single interface that returns fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"

	"github.com/reliabot/agent/internal/config"
)

// Client embeds a single piece of text into a fixed-dim vector.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Keys reports which embedding-capable provider API keys are available.
// Anthropic has no embeddings endpoint, so it is never a valid
// embedding provider even when an Anthropic API key is configured.
type Keys struct {
	OpenAI string
	Gemini string
}

// Resolve mirrors llmprovider.Resolve's policy, restricted to the two
// providers that actually offer embeddings.
func Resolve(pref config.LLMProviderPref, keys Keys) config.LLMProviderPref {
	switch pref {
	case config.ProviderOpenAI:
		if keys.OpenAI != "" {
			return config.ProviderOpenAI
		}
		return ""
	case config.ProviderGemini:
		if keys.Gemini != "" {
			return config.ProviderGemini
		}
		return ""
	case config.ProviderAnthropic:
		return ""
	case config.ProviderAuto, "":
		if keys.OpenAI != "" {
			return config.ProviderOpenAI
		}
		if keys.Gemini != "" {
			return config.ProviderGemini
		}
		return ""
	default:
		return ""
	}
}

// NewClient constructs a Client for the resolved embedding provider.
func NewClient(provider config.LLMProviderPref, cfg config.Config, keys Keys) (Client, error) {
	model := cfg.EmbeddingModel
	switch provider {
	case config.ProviderOpenAI:
		if model == "" {
			model = "text-embedding-3-small"
		}
		return newOpenAIEmbedder(keys.OpenAI, model), nil
	case config.ProviderGemini:
		if model == "" {
			model = "text-embedding-004"
		}
		return newGeminiEmbedder(keys.Gemini, model)
	default:
		return nil, fmt.Errorf("embedding: no provider available")
	}
}
