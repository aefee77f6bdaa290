package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/breakwatch/pkg/cli/config"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdCheck() *cli.Command {
	var (
		githubCfg  config.GitHub
		catalogCfg config.Catalog
		checkCfg   config.Check
		slackCfg   config.Slack
	)

	var flags []cli.Flag
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)
	flags = append(flags, checkCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "check",
		Aliases: []string{"c"},
		Usage:   "Check a pull request and comment known breaking changes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			pr, err := checkCfg.PRInfo()
			if err != nil {
				return err
			}

			githubClient, err := githubCfg.NewClient()
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}

			resolver, err := catalogCfg.NewResolver()
			if err != nil {
				return err
			}

			checkUC := usecase.NewBreakingCheck(githubClient, resolver,
				usecase.WithNotifier(slackCfg.Notifier()),
				usecase.WithDryRun(checkCfg.DryRun),
			)

			report, err := checkUC.Check(ctx, pr)
			if err != nil {
				return err
			}

			if checkCfg.DryRun && report.Comment != "" {
				if _, err := fmt.Fprintln(c.Root().Writer, report.Comment); err != nil {
					return goerr.Wrap(err, "failed to write comment")
				}
			}

			if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
				if err := writeActionOutputs(path, report); err != nil {
					logger.Warn("Failed to write step outputs", "error", err)
				}
			}

			if report.HasBreaking && checkCfg.FailOnBreaking {
				return goerr.New("breaking changes detected",
					goerr.V("repo", pr.FullName()),
					goerr.V("number", pr.Number),
					goerr.V("package_count", report.BreakingCount()),
				)
			}

			return nil
		},
	}
}

// writeActionOutputs appends step outputs in the GITHUB_OUTPUT key=value format
func writeActionOutputs(path string, report *model.CheckReport) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return goerr.Wrap(err, "failed to open step output file", goerr.V("path", path))
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "has-breaking-changes=%t\nbreaking-count=%d\n", report.HasBreaking, report.BreakingCount()); err != nil {
		return goerr.Wrap(err, "failed to write step outputs", goerr.V("path", path))
	}

	return nil
}
