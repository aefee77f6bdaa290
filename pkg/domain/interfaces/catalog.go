package interfaces

import (
	"context"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
)

// CatalogClient queries the remote breaking change catalog
type CatalogClient interface {
	// Diff returns breaking changes between two versions of a package
	Diff(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error)

	// Releases lists recent releases of a package
	Releases(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error)
}

// Notifier delivers a short summary of a check outside of GitHub
type Notifier interface {
	Notify(ctx context.Context, pr *model.PRInfo, report *model.CheckReport) error
}
