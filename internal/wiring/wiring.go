// Package wiring assembles the concrete dependency graph described by
// a config.Config into a workflowx.Activities, for the worker
// entrypoint.
package wiring

import (
	"context"
	"fmt"

	"github.com/reliabot/agent/internal/autofix"
	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/embedding"
	"github.com/reliabot/agent/internal/enricher"
	"github.com/reliabot/agent/internal/fixsynth"
	"github.com/reliabot/agent/internal/forge"
	"github.com/reliabot/agent/internal/incidentstore"
	"github.com/reliabot/agent/internal/llmprovider"
	"github.com/reliabot/agent/internal/logsource"
	"github.com/reliabot/agent/internal/model"
	"github.com/reliabot/agent/internal/repocache"
	"github.com/reliabot/agent/internal/repoindexer"
	"github.com/reliabot/agent/internal/retriever"
	"github.com/reliabot/agent/internal/sandbox"
	"github.com/reliabot/agent/internal/vectorstore"
	"github.com/reliabot/agent/internal/workflowx"
)

// Built holds every constructed component plus a Close to release
// pooled connections.
type Built struct {
	Activities *workflowx.Activities
	LogClient  *logsource.Client
	VecStore   *vectorstore.Store
	IncStore   *incidentstore.Store
	Close      func()
}

// RepoTarget resolves the repo target named in cfg, deriving it from
// REPO_URL when no explicit owner/repo pair was configured (spec.md
// §3's "derived from either a URL or owner/repo pair").
func RepoTarget(cfg config.Config) model.RepoTarget {
	if cfg.Repo.Owner != "" {
		host := cfg.Repo.Host
		if host == "" {
			host = model.CanonicalHost
		}
		return model.RepoTarget{Host: host, Owner: cfg.Repo.Owner, Repo: cfg.Repo.Repo}
	}
	if cfg.Repo.URL != "" {
		if target, err := model.ParseRepoURL(cfg.Repo.URL); err == nil {
			return target
		}
	}
	return model.RepoTarget{}
}

// Build constructs every component named in SPEC_FULL.md's wiring
// notes from cfg. Components whose prerequisites are absent (no LLM
// key, no Postgres URL) are left nil rather than erroring — the
// pipeline degrades gracefully per spec.md §7's "fatal
// misconfiguration" policy.
func Build(ctx context.Context, cfg config.Config) (*Built, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	logClient := logsource.New(cfg.LokiURL)

	var vecStore *vectorstore.Store
	var incStore *incidentstore.Store
	if cfg.PostgresURL != "" {
		vs, err := vectorstore.New(ctx, cfg.PostgresURL, cfg.EmbeddingDim)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("wiring: vectorstore: %w", err)
		}
		vecStore = vs
		closers = append(closers, vs.Close)

		is, err := incidentstore.New(ctx, cfg.PostgresURL)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("wiring: incidentstore: %w", err)
		}
		incStore = is
		closers = append(closers, is.Close)
	}

	llmKeys := llmprovider.Keys{OpenAI: cfg.OpenAIAPIKey, Anthropic: cfg.AnthropicAPIKey, Gemini: cfg.GeminiAPIKey}
	var llmClient llmprovider.Client
	if provider := llmprovider.Resolve(cfg.LLMProvider, llmKeys); provider != "" {
		c, err := llmprovider.NewClient(provider, cfg, llmKeys)
		if err == nil {
			llmClient = c
		}
	}

	embedKeys := embedding.Keys{OpenAI: cfg.OpenAIAPIKey, Gemini: cfg.GeminiAPIKey}
	var embedClient embedding.Client
	if provider := embedding.Resolve(cfg.EmbeddingProvider, embedKeys); provider != "" {
		c, err := embedding.NewClient(provider, cfg, embedKeys)
		if err == nil {
			embedClient = c
		}
	}

	target := RepoTarget(cfg)

	var repoCache *repocache.Cache
	if cfg.RAGRepoCacheDir != "" {
		repoCache = repocache.New(cfg.RAGRepoCacheDir, cfg.GitHubToken, cfg.GitHubDefaultBranch)
	}

	var indexer *repoindexer.Indexer
	if vecStore != nil {
		indexer = &repoindexer.Indexer{
			Store:        vecStore,
			Embedder:     embedClient,
			Git:          repoCache,
			ChunkSize:    cfg.RAGChunkSize,
			ChunkOverlap: cfg.RAGChunkOverlap,
		}
	}

	var retr *retriever.Retriever
	if vecStore != nil {
		retr = &retriever.Retriever{Store: vecStore, Embedder: embedClient}
	}

	var forgeClient *forge.Client
	if cfg.GitHubToken != "" && cfg.Repo.Owner != "" {
		forgeClient = forge.New(ctx, cfg.GitHubToken, cfg.Repo.Owner, cfg.Repo.Repo)
	}

	fixEngine := &autofix.Engine{
		Enabled:          cfg.AutoFixMode == config.AutoFixOn,
		Severity:         cfg.AutoFixSeverity,
		RepoCache:        repoCache,
		Retriever:        retr,
		Synth:            &fixsynth.Synthesizer{Client: llmClient},
		Forge:            forgeClient,
		Sandbox:          sandbox.New(),
		RepoTarget:       target,
		RepoURL:          cfg.Repo.URL,
		ExplicitRepoPath: cfg.AutoFixRepoPath,
		DefaultBranch:    cfg.GitHubDefaultBranch,
		GitUserName:      cfg.GitUserName,
		GitUserEmail:     cfg.GitUserEmail,
		BranchPrefix:     cfg.AutoFixBranchPrefix,
		TestCommand:      cfg.AutoFixTestCommand,
		InstallCommand:   cfg.AutoFixInstallCommand,
		SandboxImage:     cfg.AutoFixSandboxImage,
		TopK:             cfg.RAGTopK,
		MinScore:         cfg.RAGMinScore,
	}

	activities := &workflowx.Activities{
		LogClient:     logClient,
		IncidentStore: incStore,
		RepoCache:     repoCache,
		Indexer:       indexer,
		Enricher:      &enricher.Enricher{Client: llmClient},
		Forge:         forgeClient,
		AutoFix:       fixEngine,
		RepoTarget:    target,
		RepoURL:       cfg.Repo.URL,
		IssueLabels:   []string{"reliability"},
	}

	return &Built{
		Activities: activities,
		LogClient:  logClient,
		VecStore:   vecStore,
		IncStore:   incStore,
		Close:      closeAll,
	}, nil
}
