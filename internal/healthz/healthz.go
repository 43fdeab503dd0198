// Package healthz probes each external dependency the agent relies on,
// with a small per-check retry, for the `healthcheck` CLI entrypoint
// (spec.md §6).
package healthz

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.temporal.io/sdk/client"
)

// Checker runs the configured set of readiness probes. A nil field
// skips that check entirely (e.g. DemoURL == "" skips the demo probe).
type Checker struct {
	LogReady     func(ctx context.Context) error
	Pool         *pgxpool.Pool
	Temporal     client.Client
	DemoURL      string
	HTTPClient   *http.Client
	RetryAttempts int
	RetryDelay    time.Duration
}

// Result is one named check's outcome.
type Result struct {
	Name string
	Err  error
}

// Run executes every configured check, retrying each up to
// RetryAttempts times before recording a failure, and returns one
// Result per check plus the aggregate ok.
func (c *Checker) Run(ctx context.Context) ([]Result, bool) {
	var results []Result
	ok := true

	record := func(name string, fn func(context.Context) error) {
		err := c.retry(ctx, fn)
		results = append(results, Result{Name: name, Err: err})
		if err != nil {
			ok = false
		}
	}

	if c.LogReady != nil {
		record("log_backend", c.LogReady)
	}
	if c.Pool != nil {
		record("postgres", func(ctx context.Context) error { return c.Pool.Ping(ctx) })
	}
	if c.Temporal != nil {
		record("temporal", func(ctx context.Context) error {
			_, err := c.Temporal.CheckHealth(ctx, &client.CheckHealthRequest{})
			return err
		})
	}
	if c.DemoURL != "" {
		record("demo", c.checkDemoURL)
	}

	return results, ok
}

func (c *Checker) checkDemoURL(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DemoURL, nil)
	if err != nil {
		return fmt.Errorf("healthz: build demo request: %w", err)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("healthz: demo url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("healthz: demo url: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Checker) retry(ctx context.Context, fn func(context.Context) error) error {
	attempts := c.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if i < attempts-1 && c.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
	}
	return lastErr
}
