package config

import (
	"os"
	"strconv"
)

// FromEnv reads every option named in spec.md §6's configuration table
// and returns a Config with defaults applied.
func FromEnv() Config {
	c := Config{
		TemporalAddress: os.Getenv("TEMPORAL_ADDRESS"),
		LokiURL:         os.Getenv("LOKI_URL"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),

		Repo: RepoTargetConfig{
			URL:   os.Getenv("REPO_URL"),
			Owner: os.Getenv("GITHUB_OWNER"),
			Repo:  os.Getenv("GITHUB_REPO"),
		},

		GitHubToken:         os.Getenv("GITHUB_TOKEN"),
		GitHubDefaultBranch: os.Getenv("GITHUB_DEFAULT_BRANCH"),
		GitUserName:         os.Getenv("GIT_USER_NAME"),
		GitUserEmail:        os.Getenv("GIT_USER_EMAIL"),

		LLMProvider:     LLMProviderPref(os.Getenv("LLM_PROVIDER")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),

		EmbeddingProvider: LLMProviderPref(os.Getenv("EMBEDDING_PROVIDER")),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDim:      atoiOr(os.Getenv("EMBEDDING_DIM"), 0),

		RAGTopK:         atoiOr(os.Getenv("RAG_TOP_K"), 5),
		RAGMinScore:     atofOr(os.Getenv("RAG_MIN_SCORE"), 0.7),
		RAGChunkSize:    atoiOr(os.Getenv("RAG_CHUNK_SIZE"), 0),
		RAGChunkOverlap: atoiOr(os.Getenv("RAG_CHUNK_OVERLAP"), 0),

		RAGRepoPath:     os.Getenv("RAG_REPO_PATH"),
		RAGRepoCacheDir: os.Getenv("RAG_REPO_CACHE_DIR"),
		RAGRepoRefresh:  RepoRefresh(os.Getenv("RAG_REPO_REFRESH")),

		AutoFixMode:           AutoFixMode(os.Getenv("AUTO_FIX_MODE")),
		AutoFixSeverity:       os.Getenv("AUTO_FIX_SEVERITY"),
		AutoFixRepoPath:       os.Getenv("AUTO_FIX_REPO_PATH"),
		AutoFixBranchPrefix:   os.Getenv("AUTO_FIX_BRANCH_PREFIX"),
		AutoFixTestCommand:    os.Getenv("AUTO_FIX_TEST_COMMAND"),
		AutoFixInstallCommand: os.Getenv("AUTO_FIX_INSTALL_COMMAND"),
		AutoFixSandboxImage:   os.Getenv("AUTO_FIX_SANDBOX_IMAGE"),

		AutoEscalateFrom: os.Getenv("AUTO_ESCALATE_FROM"),

		DemoURL: os.Getenv("DEMO_URL"),
	}
	if c.Repo.Owner != "" && c.Repo.Host == "" {
		c.Repo.Host = "github.com"
	}
	return c.Defaults()
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atofOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
