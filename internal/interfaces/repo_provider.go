package interfaces

import (
	"context"
	"errors"
)

// Sentinel errors for repository content access. Fatal kinds (not found,
// forbidden) fail the whole job; rate limiting is retryable.
var (
	ErrRepoNotFound  = errors.New("repository not found")
	ErrRepoForbidden = errors.New("repository access forbidden")
	ErrRateLimited   = errors.New("rate limited by content provider")
)

// RepoFile is one entry in a repository's file tree
type RepoFile struct {
	Path string
	Size int
}

// RepoProvider supplies a repository's file tree and file contents.
// Implementations carry their own credentials and rate limiting.
type RepoProvider interface {
	// ListFiles returns the full recursive file tree (blobs only)
	ListFiles(ctx context.Context, owner, name string) ([]RepoFile, error)

	// GetFileContent returns the decoded content of a single file
	GetFileContent(ctx context.Context, owner, name, path string) (string, error)
}
