package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

type notifier struct {
	webhookURL string
	channel    string
}

// NewNotifier creates a Notifier posting to a Slack incoming webhook
func NewNotifier(webhookURL, channel string) interfaces.Notifier {
	return &notifier{
		webhookURL: webhookURL,
		channel:    channel,
	}
}

// Notify posts a summary of packages with breaking changes
func (n *notifier) Notify(ctx context.Context, pr *model.PRInfo, report *model.CheckReport) error {
	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    BuildMessage(pr, report),
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack webhook",
			goerr.V("repo", pr.FullName()),
			goerr.V("number", pr.Number),
		)
	}

	return nil
}

// BuildMessage renders the Slack text of a report
func BuildMessage(pr *model.PRInfo, report *model.CheckReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(":warning: Breaking dependency changes in <https://github.com/%s/pull/%d|%s#%d>\n",
		pr.FullName(), pr.Number, pr.FullName(), pr.Number))

	for _, r := range report.Results {
		if !r.HasBreakingChanges() {
			continue
		}
		sb.WriteString(fmt.Sprintf("• `%s` %s → %s: %d breaking change(s) (<%s|migration guide>)\n",
			r.Package, r.FromVersion, r.ToVersion, len(r.BreakingChanges), r.MigrationURL))
	}

	return sb.String()
}
