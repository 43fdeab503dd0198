// Package config defines the typed configuration the pipeline's
// components are constructed from. FromEnv (env.go) loads these values
// from the environment and applies defaults; it does not validate
// them. Config is passed to components by value.
package config

import "time"

// LLMProviderPref selects which LLM/embedding provider to prefer.
type LLMProviderPref string

const (
	ProviderAuto      LLMProviderPref = "auto"
	ProviderOpenAI    LLMProviderPref = "openai"
	ProviderAnthropic LLMProviderPref = "anthropic"
	ProviderGemini    LLMProviderPref = "gemini"
)

// AutoFixMode gates whether the auto-fix engine runs at all.
type AutoFixMode string

const (
	AutoFixOff AutoFixMode = "off"
	AutoFixOn  AutoFixMode = "on"
)

// RepoRefresh selects the repo cache's refresh strategy.
type RepoRefresh string

const (
	RepoRefreshPull    RepoRefresh = "pull"
	RepoRefreshReclone RepoRefresh = "reclone"
)

// Config holds every tunable named in spec.md §6's configuration table.
type Config struct {
	TemporalAddress string
	LokiURL         string
	PostgresURL     string

	Repo RepoTargetConfig

	GitHubToken          string
	GitHubDefaultBranch  string
	GitUserName          string
	GitUserEmail         string

	LLMProvider   LLMProviderPref
	OpenAIAPIKey  string
	OpenAIModel   string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	EmbeddingProvider LLMProviderPref
	EmbeddingModel    string
	EmbeddingDim      int

	RAGTopK         int
	RAGMinScore     float64
	RAGChunkSize    int
	RAGChunkOverlap int

	RAGRepoPath      string
	RAGRepoCacheDir  string
	RAGRepoRefresh   RepoRefresh

	AutoFixMode         AutoFixMode
	AutoFixSeverity     string // low|medium|high|critical|all
	AutoFixRepoPath     string
	AutoFixBranchPrefix string
	AutoFixTestCommand  string
	AutoFixInstallCommand string
	AutoFixSandboxImage   string

	AutoEscalateFrom string // low|medium|high|critical|none

	DemoURL string
}

// RepoTargetConfig carries either a REPO_URL or an owner/repo pair,
// resolved by the caller into a model.RepoTarget.
type RepoTargetConfig struct {
	URL   string
	Host  string
	Owner string
	Repo  string
}

// Defaults fills in zero-valued tunables: chunk size/overlap 900/150,
// embedding dimension 1536, and default branch "main". Other fields
// are left as they are.
func (c Config) Defaults() Config {
	if c.RAGChunkSize == 0 {
		c.RAGChunkSize = 900
	}
	if c.RAGChunkOverlap == 0 {
		c.RAGChunkOverlap = 150
	}
	if c.EmbeddingDim == 0 {
		c.EmbeddingDim = 1536
	}
	if c.GitHubDefaultBranch == "" {
		c.GitHubDefaultBranch = "main"
	}
	return c
}

// ActivityTimeouts are the durations named in spec.md §4.8.
const (
	DefaultActivityTimeout  = 2 * time.Minute
	DefaultActivityAttempts = 3
	AutoFixActivityTimeout  = 15 * time.Minute
	AutoFixActivityAttempts = 1
	RunExecutionTimeout     = 2 * time.Minute
	SandboxInstallTimeout   = 15 * time.Minute
)
