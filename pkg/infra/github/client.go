package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const perPage = 100

type client struct {
	githubClient *github.Client
}

// Option configures the GitHub client
type Option func(*github.Client) error

// WithBaseURL points the client at a GitHub Enterprise Server or a test server.
// The URL is used as given, e.g. https://ghe.example.com/api/v3/
func WithBaseURL(baseURL string) Option {
	return func(c *github.Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", baseURL))
		}
		c.BaseURL = u
		return nil
	}
}

// NewClient creates a new GitHub client authenticated with a token
func NewClient(token string, opts ...Option) (interfaces.GitHubClient, error) {
	githubClient := github.NewClient(&http.Client{}).WithAuthToken(token)

	for _, opt := range opts {
		if err := opt(githubClient); err != nil {
			return nil, err
		}
	}

	return &client{
		githubClient: githubClient,
	}, nil
}

// GetPullRequestRefs returns base and head commit SHA of a pull request
func (c *client) GetPullRequestRefs(ctx context.Context, owner, repo string, number int) (string, string, error) {
	pr, _, err := c.githubClient.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to get pull request",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("number", number),
		)
	}

	return pr.GetBase().GetSHA(), pr.GetHead().GetSHA(), nil
}

// ListChangedFiles lists all files changed by a pull request
func (c *client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*model.ChangedFile, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var files []*model.ChangedFile
	for {
		page, resp, err := c.githubClient.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list pull request files",
				goerr.V("owner", owner),
				goerr.V("repo", repo),
				goerr.V("number", number),
				goerr.V("page", opts.Page),
			)
		}

		for _, f := range page {
			files = append(files, &model.ChangedFile{
				Filename:         f.GetFilename(),
				PreviousFilename: f.GetPreviousFilename(),
				Status:           f.GetStatus(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// GetFileContent returns decoded content of path at ref. A file missing at ref
// (404) is returned as empty content without error.
func (c *client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	fileContent, _, resp, err := c.githubClient.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			ctxlog.From(ctx).Debug("File not found at ref", "path", path, "ref", ref)
			return "", nil
		}
		return "", goerr.Wrap(err, "failed to get file content",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("path", path),
			goerr.V("ref", ref),
		)
	}

	if fileContent == nil {
		return "", goerr.New("path is not a file", goerr.V("path", path), goerr.V("ref", ref))
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", goerr.Wrap(err, "failed to decode file content", goerr.V("path", path), goerr.V("ref", ref))
	}

	return content, nil
}

// UpsertComment edits the first issue comment containing marker, or creates a new comment
func (c *client) UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error {
	logger := ctxlog.From(ctx)

	existing, err := c.findComment(ctx, owner, repo, number, marker)
	if err != nil {
		return err
	}

	if existing != nil {
		if _, _, err := c.githubClient.Issues.EditComment(ctx, owner, repo, existing.GetID(), &github.IssueComment{
			Body: github.Ptr(body),
		}); err != nil {
			return goerr.Wrap(err, "failed to update comment",
				goerr.V("owner", owner),
				goerr.V("repo", repo),
				goerr.V("comment_id", existing.GetID()),
			)
		}
		logger.Info("Updated existing comment", "comment_id", existing.GetID())
		return nil
	}

	created, _, err := c.githubClient.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create comment",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("number", number),
		)
	}
	logger.Info("Created comment", "comment_id", created.GetID())

	return nil
}

func (c *client) findComment(ctx context.Context, owner, repo string, number int, marker string) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		comments, resp, err := c.githubClient.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list comments",
				goerr.V("owner", owner),
				goerr.V("repo", repo),
				goerr.V("number", number),
			)
		}

		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), marker) {
				return comment, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}
