package embedding

import (
	"testing"

	"github.com/reliabot/agent/internal/config"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		pref config.LLMProviderPref
		keys Keys
		want config.LLMProviderPref
	}{
		{"auto picks openai first", config.ProviderAuto, Keys{OpenAI: "k", Gemini: "k"}, config.ProviderOpenAI},
		{"auto falls back to gemini", config.ProviderAuto, Keys{Gemini: "k"}, config.ProviderGemini},
		{"anthropic never valid", config.ProviderAnthropic, Keys{OpenAI: "k", Gemini: "k"}, ""},
		{"explicit gemini without key", config.ProviderGemini, Keys{OpenAI: "k"}, ""},
		{"none available", config.ProviderAuto, Keys{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.pref, tt.keys); got != tt.want {
				t.Errorf("Resolve(%q, %+v) = %q, want %q", tt.pref, tt.keys, got, tt.want)
			}
		})
	}
}
