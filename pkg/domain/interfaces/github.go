package interfaces

import (
	"context"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
)

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// GetPullRequestRefs returns base and head commit SHA of a pull request
	GetPullRequestRefs(ctx context.Context, owner, repo string, number int) (baseSHA, headSHA string, err error)

	// ListChangedFiles lists all files changed by a pull request
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*model.ChangedFile, error)

	// GetFileContent returns decoded file content at ref. A missing file is returned as empty content.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)

	// UpsertComment updates the issue comment containing marker, or creates a new one
	UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error
}
