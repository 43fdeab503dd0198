// Package logsource range-queries the log backend and returns
// timestamped events.
package logsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/reliabot/agent/internal/model"
)

// Client queries a Loki-compatible log backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client against baseURL. A default HTTP client with a
// 30s timeout is used if none is supplied.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type queryRangeResponse struct {
	Data struct {
		Result []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// QueryRange issues a loki/api/v1/query_range request for the given
// LogQL query over [start, end] (nanoseconds-since-epoch), capped at
// limit results, and returns the flattened events.
func (c *Client) QueryRange(ctx context.Context, logql string, start, end time.Time, limit int) ([]model.LogEvent, error) {
	u, err := url.Parse(c.BaseURL + "/loki/api/v1/query_range")
	if err != nil {
		return nil, fmt.Errorf("logsource: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("query", logql)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	q.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("logsource: build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("logsource: query_range: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("logsource: query_range: unexpected status %d", resp.StatusCode)
	}

	var parsed queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("logsource: decode response: %w", err)
	}

	var events []model.LogEvent
	for _, stream := range parsed.Data.Result {
		for _, v := range stream.Values {
			events = append(events, model.LogEvent{
				Timestamp: v[0],
				Message:   v[1],
				Labels:    stream.Stream,
			})
		}
	}
	return events, nil
}

// Ready probes the backend's /ready endpoint, used by the health check.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/ready", nil)
	if err != nil {
		return fmt.Errorf("logsource: build ready request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("logsource: ready: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logsource: ready: unexpected status %d", resp.StatusCode)
	}
	return nil
}
