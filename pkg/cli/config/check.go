package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Check holds configuration of a single pull request check run
type Check struct {
	FailOnBreaking bool
	Repository     string
	PR             int
	EventPath      string
	DryRun         bool
}

// Flags returns CLI flags for the check command
func (c *Check) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "fail-on-breaking",
			Usage:       "Exit with non-zero status when breaking changes are detected",
			Destination: &c.FailOnBreaking,
			Sources:     cli.EnvVars("INPUT_FAIL_ON_BREAKING", "BREAKWATCH_FAIL_ON_BREAKING"),
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Target repository (owner/name)",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("GITHUB_REPOSITORY"),
		},
		&cli.IntFlag{
			Name:        "pr",
			Usage:       "Pull request number. Read from the event payload when omitted",
			Destination: &c.PR,
			Sources:     cli.EnvVars("BREAKWATCH_PR_NUMBER"),
		},
		&cli.StringFlag{
			Name:        "event-path",
			Usage:       "Path of the pull_request event payload",
			Destination: &c.EventPath,
			Sources:     cli.EnvVars("GITHUB_EVENT_PATH"),
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Print the comment instead of posting it",
			Destination: &c.DryRun,
			Sources:     cli.EnvVars("BREAKWATCH_DRY_RUN"),
		},
	}
}

// PRInfo identifies the pull request to check. An explicit --pr takes
// precedence over the event payload.
func (c *Check) PRInfo() (*model.PRInfo, error) {
	if c.PR > 0 {
		owner, repo, ok := strings.Cut(c.Repository, "/")
		if !ok || owner == "" || repo == "" {
			return nil, goerr.New("repository must be owner/name", goerr.V("repository", c.Repository))
		}
		return &model.PRInfo{
			Owner:  owner,
			Repo:   repo,
			Number: c.PR,
		}, nil
	}

	if c.EventPath == "" {
		return nil, goerr.New("either --pr or --event-path is required")
	}

	data, err := os.ReadFile(c.EventPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read event payload", goerr.V("path", c.EventPath))
	}

	var event github.PullRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, goerr.Wrap(err, "failed to parse event payload", goerr.V("path", c.EventPath))
	}

	pr, err := model.NewPRInfoFromEvent(&event)
	if err != nil {
		return nil, goerr.Wrap(err, "event payload is not a pull_request event", goerr.V("path", c.EventPath))
	}

	return pr, nil
}
