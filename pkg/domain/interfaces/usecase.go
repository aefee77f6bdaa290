package interfaces

import (
	"context"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}

// BreakingCheckUseCase runs the manifest diff, catalog lookup and comment pipeline for a pull request
type BreakingCheckUseCase interface {
	Check(ctx context.Context, pr *model.PRInfo) (*model.CheckReport, error)
}
