package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

type breakingCheck struct {
	githubClient interfaces.GitHubClient
	resolver     *Resolver
	notifier     interfaces.Notifier
	dryRun       bool
}

// BreakingCheckOption configures the breaking change check use case
type BreakingCheckOption func(*breakingCheck)

// WithNotifier sends a summary through notifier when breaking changes are found
func WithNotifier(notifier interfaces.Notifier) BreakingCheckOption {
	return func(uc *breakingCheck) {
		uc.notifier = notifier
	}
}

// WithDryRun disables posting the pull request comment
func WithDryRun(dryRun bool) BreakingCheckOption {
	return func(uc *breakingCheck) {
		uc.dryRun = dryRun
	}
}

// NewBreakingCheck creates a new BreakingCheckUseCase instance
func NewBreakingCheck(
	githubClient interfaces.GitHubClient,
	resolver *Resolver,
	opts ...BreakingCheckOption,
) interfaces.BreakingCheckUseCase {
	uc := &breakingCheck{
		githubClient: githubClient,
		resolver:     resolver,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Check inspects changed manifests of a pull request and comments known breaking changes
func (uc *breakingCheck) Check(ctx context.Context, pr *model.PRInfo) (*model.CheckReport, error) {
	logger := ctxlog.From(ctx).With("run_id", uuid.NewString())
	ctx = ctxlog.With(ctx, logger)

	if pr.BaseSHA == "" || pr.HeadSHA == "" {
		base, head, err := uc.githubClient.GetPullRequestRefs(ctx, pr.Owner, pr.Repo, pr.Number)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve pull request revisions",
				goerr.V("repo", pr.FullName()),
				goerr.V("number", pr.Number),
			)
		}
		pr.BaseSHA, pr.HeadSHA = base, head
	}

	logger.Info("Checking pull request for breaking dependency changes",
		"repo", pr.FullName(),
		"number", pr.Number,
		"base", pr.BaseSHA,
		"head", pr.HeadSHA,
	)

	changes, err := uc.collectChanges(ctx, pr)
	if err != nil {
		return nil, err
	}

	report := &model.CheckReport{Changes: changes}
	if len(changes) == 0 {
		logger.Info("No dependency version changes found")
		return report, nil
	}

	logger.Info("Dependency version changes found", "count", len(changes))

	report.Results = uc.resolver.Resolve(ctx, changes)

	comment, ok := FormatComment(report.Results)
	if !ok {
		logger.Info("No known breaking changes")
		return report, nil
	}
	report.Comment = comment
	report.HasBreaking = true

	logger.Info("Breaking changes detected", "package_count", report.BreakingCount())

	if err := uc.postComment(ctx, pr, comment); err != nil {
		return nil, err
	}

	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, pr, report); err != nil {
			logger.Warn("Failed to send notification", "error", err)
		}
	}

	return report, nil
}

// collectChanges runs the manifest differ over every recognized changed file
func (uc *breakingCheck) collectChanges(ctx context.Context, pr *model.PRInfo) ([]model.DependencyChange, error) {
	logger := ctxlog.From(ctx)

	files, err := uc.githubClient.ListChangedFiles(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list changed files",
			goerr.V("repo", pr.FullName()),
			goerr.V("number", pr.Number),
		)
	}

	var changes []model.DependencyChange
	for _, file := range files {
		if DetectManifestKind(file.Filename) == ManifestUnknown {
			continue
		}

		var oldContent, newContent string
		if !file.IsAdded() {
			oldContent = uc.fetchContent(ctx, pr, file.BaseFilename(), pr.BaseSHA)
		}
		if !file.IsRemoved() {
			newContent = uc.fetchContent(ctx, pr, file.Filename, pr.HeadSHA)
		}

		found := ParseManifest(ctx, file.Filename, oldContent, newContent)
		logger.Debug("Parsed manifest",
			"filename", file.Filename,
			"status", file.Status,
			"change_count", len(found),
		)
		changes = append(changes, found...)
	}

	return changes, nil
}

// fetchContent returns file content at ref, or empty content when it cannot be fetched
func (uc *breakingCheck) fetchContent(ctx context.Context, pr *model.PRInfo, path, ref string) string {
	content, err := uc.githubClient.GetFileContent(ctx, pr.Owner, pr.Repo, path, ref)
	if err != nil {
		ctxlog.From(ctx).Warn("Failed to fetch file content, treating as empty",
			"path", path,
			"ref", ref,
			"error", err,
		)
		return ""
	}
	return content
}

// postComment creates or updates the breaking change comment on the pull request
func (uc *breakingCheck) postComment(ctx context.Context, pr *model.PRInfo, comment string) error {
	logger := ctxlog.From(ctx)

	if uc.dryRun {
		logger.Info("Dry run, skipping comment", "comment", comment)
		return nil
	}

	logger.Info("Posting breaking change report to PR",
		"repo", pr.FullName(),
		"number", pr.Number,
	)

	if err := uc.githubClient.UpsertComment(ctx, pr.Owner, pr.Repo, pr.Number, CommentMarker, comment); err != nil {
		return goerr.Wrap(err, "failed to upsert comment",
			goerr.V("repo", pr.FullName()),
			goerr.V("number", pr.Number),
		)
	}

	logger.Info("Successfully posted comment to PR")
	return nil
}
