package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Connector implements interfaces.RepoProvider on the GitHub API
type Connector struct {
	client  *github.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  arbor.ILogger
}

// NewConnector creates a GitHub repository content provider. An empty token
// gives unauthenticated access (public repositories, low rate limits).
func NewConnector(token string, cfg *common.GitHubConfig, logger arbor.ILogger) *Connector {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &Connector{
		client:  github.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		timeout: common.ParseDurationOr(cfg.FetchTimeout, 30*time.Second),
		logger:  logger,
	}
}

// ParseRepoURL extracts owner and repo name from a GitHub URL
func ParseRepoURL(repoURL string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(repoURL), "/"))
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL %q: %w", repoURL, err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected owner/repo", repoURL)
	}

	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")
	return owner, name, nil
}

// ListFiles returns the recursive file tree of the default branch
func (c *Connector) ListFiles(ctx context.Context, owner, name string) ([]interfaces.RepoFile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	repo, _, err := c.client.Repositories.Get(reqCtx, owner, name)
	if err != nil {
		return nil, mapError(err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	treeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tree, _, err := c.client.Git.GetTree(treeCtx, owner, name, repo.GetDefaultBranch(), true)
	if err != nil {
		return nil, mapError(err)
	}

	var files []interfaces.RepoFile
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		files = append(files, interfaces.RepoFile{
			Path: entry.GetPath(),
			Size: entry.GetSize(),
		})
	}

	c.logger.Debug().
		Str("repo", owner+"/"+name).
		Int("files", len(files)).
		Msg("Listed repository tree")

	return files, nil
}

// GetFileContent fetches and decodes a single file
func (c *Connector) GetFileContent(ctx context.Context, owner, name, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, _, _, err := c.client.Repositories.GetContents(reqCtx, owner, name, path, nil)
	if err != nil {
		return "", mapError(err)
	}
	if content == nil {
		return "", interfaces.ErrRepoNotFound
	}

	// go-github decodes most encodings itself; fall back to raw base64 for
	// responses it leaves encoded
	decoded, err := content.GetContent()
	if err == nil && decoded != "" {
		return decoded, nil
	}
	if content.Content != nil {
		raw, decErr := base64.StdEncoding.DecodeString(*content.Content)
		if decErr == nil {
			return string(raw), nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %s: %w", path, err)
	}
	return decoded, nil
}

// mapError translates go-github errors to the provider's sentinel kinds
func mapError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %s", interfaces.ErrRateLimited, err.Error())
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %s", interfaces.ErrRateLimited, err.Error())
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", interfaces.ErrRepoNotFound, err.Error())
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", interfaces.ErrRepoForbidden, err.Error())
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", interfaces.ErrRateLimited, err.Error())
		}
	}
	return err
}

// Ensure interface compliance
var _ interfaces.RepoProvider = (*Connector)(nil)
