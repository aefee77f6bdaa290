package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

type webhookUseCase struct {
	checkUC interfaces.BreakingCheckUseCase
}

// NewWebhook creates a new instance of WebhookUseCase
func NewWebhook(checkUC interfaces.BreakingCheckUseCase) interfaces.WebhookUseCase {
	return &webhookUseCase{
		checkUC: checkUC,
	}
}

// ProcessEvent starts a breaking change check for supported pull request
// events. The check runs in background so the webhook can be acknowledged
// immediately.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository,
		"sender", event.Sender,
		"supported", event.IsSupportedEvent(),
	)

	if !event.IsSupportedEvent() {
		logger.Debug("Ignoring event",
			"type", event.Type,
			"action", event.Action,
		)
		return nil
	}

	var payload github.PullRequestEvent
	if err := json.Unmarshal(event.RawPayload, &payload); err != nil {
		return goerr.Wrap(err, "failed to parse pull_request payload", goerr.V("delivery_id", event.ID))
	}

	pr, err := model.NewPRInfoFromEvent(&payload)
	if err != nil {
		return goerr.Wrap(err, "failed to extract pull request information", goerr.V("delivery_id", event.ID))
	}

	ctx = ctxlog.With(ctx, logger.With("delivery_id", event.ID))
	async.Dispatch(ctx, "breaking_check", func(ctx context.Context) error {
		_, err := uc.checkUC.Check(ctx, pr)
		return err
	})

	return nil
}
