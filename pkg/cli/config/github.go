package config

import (
	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	githubinfra "github.com/m-mizutani/breakwatch/pkg/infra/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub API configuration
type GitHub struct {
	Token  string `masq:"secret"`
	APIURL string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token with pull request read and issue comment write permission",
			Required:    true,
			Destination: &c.Token,
			Sources:     cli.EnvVars("GITHUB_TOKEN", "INPUT_GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub REST API base URL (GitHub Enterprise Server)",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("GITHUB_API_URL"),
		},
	}
}

// NewClient creates a GitHub client from the configuration
func (c *GitHub) NewClient() (interfaces.GitHubClient, error) {
	var opts []githubinfra.Option
	if c.APIURL != "" {
		opts = append(opts, githubinfra.WithBaseURL(c.APIURL))
	}
	return githubinfra.NewClient(c.Token, opts...)
}
