package llmprovider

import (
	"testing"

	"github.com/reliabot/agent/internal/config"
)

func TestResolve_Auto(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
		want config.LLMProviderPref
	}{
		{"all available picks openai", Keys{OpenAI: "k", Anthropic: "k", Gemini: "k"}, config.ProviderOpenAI},
		{"openai missing picks anthropic", Keys{Anthropic: "k", Gemini: "k"}, config.ProviderAnthropic},
		{"only gemini", Keys{Gemini: "k"}, config.ProviderGemini},
		{"none available", Keys{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(config.ProviderAuto, tt.keys); got != tt.want {
				t.Errorf("Resolve(auto, %+v) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}

func TestResolve_Explicit(t *testing.T) {
	if got := Resolve(config.ProviderAnthropic, Keys{OpenAI: "k"}); got != "" {
		t.Errorf("Resolve(anthropic, no anthropic key) = %q, want empty", got)
	}
	if got := Resolve(config.ProviderAnthropic, Keys{Anthropic: "k"}); got != config.ProviderAnthropic {
		t.Errorf("Resolve(anthropic, has key) = %q, want anthropic", got)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{"pure json", `{"a":1}`, `{"a":1}`, true},
		{"wrapped in prose", "Sure, here you go:\n```json\n{\"a\":1}\n```\nHope that helps!", `{"a":1}`, true},
		{"no braces", "not json", "", false},
		{"not json at all", "not json", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.reply)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
