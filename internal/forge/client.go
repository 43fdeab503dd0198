// Package forge wraps the hosted code-forge API used to track
// incidents and submit automated fixes: issue creation, comments, pull
// requests, and labels.
package forge

import (
	"context"
	"fmt"

	"github.com/google/go-github/v56/github"
	"github.com/reliabot/agent/internal/model"
	"golang.org/x/oauth2"
)

// Client wraps a GitHub client scoped to a single owner/repo.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New builds a Client authenticated with token, targeting owner/repo.
func New(ctx context.Context, token, owner, repo string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{gh: github.NewClient(tc), owner: owner, repo: repo}
}

// CreateIssue opens an issue with the given title/body and returns its
// reference. Any non-2xx response surfaces a reason string via the
// returned error.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (model.IssueRef, error) {
	req := &github.IssueRequest{Title: &title, Body: &body}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	issue, _, err := c.gh.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return model.IssueRef{}, fmt.Errorf("forge: create issue: %w", err)
	}
	return model.IssueRef{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}, nil
}

// CreateComment posts a comment on the given issue or PR number.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{Body: &body})
	if err != nil {
		return fmt.Errorf("forge: create comment on #%d: %w", number, err)
	}
	return nil
}

// CreatePullRequest opens a PR from head into base with title/body, then
// attaches labels. Returns the PR's HTML URL.
func (c *Client) CreatePullRequest(ctx context.Context, title, head, base, body string, labels []string) (string, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: &title,
		Head:  &head,
		Base:  &base,
		Body:  &body,
	})
	if err != nil {
		return "", fmt.Errorf("forge: create pull request: %w", err)
	}
	if len(labels) > 0 {
		if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, pr.GetNumber(), labels); err != nil {
			return pr.GetHTMLURL(), fmt.Errorf("forge: add labels to pr #%d: %w", pr.GetNumber(), err)
		}
	}
	return pr.GetHTMLURL(), nil
}
