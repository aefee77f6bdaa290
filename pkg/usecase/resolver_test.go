package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// MockCatalogClient is a mock implementation of CatalogClient
type MockCatalogClient struct {
	diffFunc     func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error)
	releasesFunc func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error)

	diffCalls     []string
	releasesCalls []string
}

func (m *MockCatalogClient) Diff(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
	m.diffCalls = append(m.diffCalls, packageID)
	if m.diffFunc != nil {
		return m.diffFunc(ctx, packageID, from, to)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockCatalogClient) Releases(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
	m.releasesCalls = append(m.releasesCalls, packageID)
	if m.releasesFunc != nil {
		return m.releasesFunc(ctx, packageID, limit)
	}
	return nil, errors.New("mock not configured")
}

func langchainChange() model.DependencyChange {
	return model.DependencyChange{
		Package:     "langchain",
		FromVersion: "0.2.0",
		ToVersion:   "1.0.0",
		Ecosystem:   model.EcosystemPyPI,
	}
}

func TestResolver_Resolve_DiffSuccess(t *testing.T) {
	ctx := context.Background()
	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			gt.Equal(t, packageID, "langchain")
			gt.Equal(t, from, "0.2.0")
			gt.Equal(t, to, "1.0.0")
			return &model.CatalogDiff{
				BreakingChanges: []model.BreakingChangeEntry{
					{Change: "ChatOpenAI moved", Fix: "Update import"},
				},
			}, nil
		},
	}

	r := usecase.NewResolver(catalog)
	results := r.Resolve(ctx, []model.DependencyChange{langchainChange()})

	gt.Equal(t, len(results), 1)
	gt.Equal(t, results[0].Package, "langchain")
	gt.Equal(t, len(results[0].BreakingChanges), 1)
	gt.Equal(t, results[0].BreakingChanges[0].Fix, "Update import")
	gt.True(t, strings.HasSuffix(results[0].MigrationURL, "/langchain/migrating-to-1.0.0"))
	gt.Equal(t, len(catalog.releasesCalls), 0)
}

func TestResolver_Resolve_FallbackToReleases(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		tag  string
	}{
		{name: "verbatim tag", tag: "1.0.0"},
		{name: "embedded separator", tag: "langchain==1.0.0"},
		{name: "v prefix", tag: "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &MockCatalogClient{
				diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
					return nil, errors.New("status 500")
				},
				releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
					gt.Equal(t, limit, 50)
					return []model.CatalogRelease{
						{Tag: "0.3.0", BreakingChanges: []model.BreakingChangeEntry{{Change: "wrong release"}}},
						{Tag: tt.tag, BreakingChanges: []model.BreakingChangeEntry{{Change: "ChatOpenAI moved"}}},
					}, nil
				},
			}

			results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
			gt.Equal(t, len(results), 1)
			gt.Equal(t, len(results[0].BreakingChanges), 1)
			gt.Equal(t, results[0].BreakingChanges[0].Change, "ChatOpenAI moved")
			gt.Equal(t, len(catalog.diffCalls), 1)
			gt.Equal(t, len(catalog.releasesCalls), 1)
		})
	}
}

func TestResolver_Resolve_BothLookupsFail(t *testing.T) {
	ctx := context.Background()
	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			return nil, errors.New("connection refused")
		},
		releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
			return nil, errors.New("connection refused")
		},
	}

	results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
	gt.Equal(t, len(results), 1)
	gt.Equal(t, len(results[0].BreakingChanges), 0)
	gt.Value(t, results[0].BreakingChanges).NotNil()
	gt.Value(t, results[0].MigrationURL).NotEqual("")
	gt.Equal(t, len(catalog.diffCalls), 1)
	gt.Equal(t, len(catalog.releasesCalls), 1)
}

func TestResolver_Resolve_NoMatchingRelease(t *testing.T) {
	ctx := context.Background()
	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			return nil, errors.New("status 404")
		},
		releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
			return []model.CatalogRelease{{Tag: "0.3.0"}}, nil
		},
	}

	results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
	gt.Equal(t, len(results[0].BreakingChanges), 0)
	gt.True(t, strings.HasSuffix(results[0].MigrationURL, "/langchain/migrating-to-1.0.0"))
}

func TestResolver_Resolve_DropsEmptyEntries(t *testing.T) {
	ctx := context.Background()

	var releases []model.CatalogRelease
	gt.NoError(t, json.Unmarshal([]byte(`[{"tag":"v1.0.0","breaking_changes":[null,"","  "]}]`), &releases))

	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			return nil, errors.New("status 500")
		},
		releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
			return releases, nil
		},
	}

	results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
	gt.Equal(t, len(results), 1)
	gt.Equal(t, len(results[0].BreakingChanges), 0)
	gt.False(t, results[0].HasBreakingChanges())

	_, ok := usecase.FormatComment(results)
	gt.False(t, ok)

	t.Run("diff response", func(t *testing.T) {
		var diff model.CatalogDiff
		gt.NoError(t, json.Unmarshal([]byte(`{"breaking_changes":[null,"ChatOpenAI moved",""]}`), &diff))

		catalog := &MockCatalogClient{
			diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
				return &diff, nil
			},
		}

		results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
		gt.Equal(t, len(results[0].BreakingChanges), 1)
		gt.Equal(t, results[0].BreakingChanges[0].Change, "ChatOpenAI moved")
	})
}

func TestResolver_Resolve_PrefersOwnReleaseTag(t *testing.T) {
	ctx := context.Background()
	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			return nil, errors.New("status 500")
		},
		releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
			return []model.CatalogRelease{
				{Tag: "langchain-core==1.0.0", BreakingChanges: []model.BreakingChangeEntry{{Change: "core release"}}},
				{Tag: "langchain==1.0.0", BreakingChanges: []model.BreakingChangeEntry{{Change: "langchain release"}}},
			}, nil
		},
	}

	results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
	gt.Equal(t, len(results[0].BreakingChanges), 1)
	gt.Equal(t, results[0].BreakingChanges[0].Change, "langchain release")

	t.Run("suffix match when no own tag exists", func(t *testing.T) {
		catalog := &MockCatalogClient{
			diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
				return nil, errors.New("status 500")
			},
			releasesFunc: func(ctx context.Context, packageID string, limit int) ([]model.CatalogRelease, error) {
				return []model.CatalogRelease{
					{Tag: "langchain-core==0.3.0", BreakingChanges: []model.BreakingChangeEntry{{Change: "old"}}},
					{Tag: "langchain-core==1.0.0", BreakingChanges: []model.BreakingChangeEntry{{Change: "core release"}}},
				}, nil
			},
		}

		results := usecase.NewResolver(catalog).Resolve(ctx, []model.DependencyChange{langchainChange()})
		gt.Equal(t, results[0].BreakingChanges[0].Change, "core release")
	})
}

func TestResolver_Resolve_KeepsOrderAndContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	catalog := &MockCatalogClient{
		diffFunc: func(ctx context.Context, packageID, from, to string) (*model.CatalogDiff, error) {
			if packageID == "broken" {
				return nil, errors.New("status 500")
			}
			return &model.CatalogDiff{BreakingChanges: []model.BreakingChangeEntry{{Change: packageID}}}, nil
		},
	}

	changes := []model.DependencyChange{
		{Package: "zeta", FromVersion: "1", ToVersion: "2"},
		{Package: "broken", FromVersion: "1", ToVersion: "2"},
		{Package: "alpha", FromVersion: "1", ToVersion: "2"},
	}
	results := usecase.NewResolver(catalog).Resolve(ctx, changes)

	gt.Equal(t, len(results), 3)
	gt.Equal(t, results[0].Package, "zeta")
	gt.Equal(t, results[1].Package, "broken")
	gt.Equal(t, len(results[1].BreakingChanges), 0)
	gt.Equal(t, results[2].Package, "alpha")
	gt.Equal(t, results[2].BreakingChanges[0].Change, "alpha")
}

func TestResolver_CanonicalID(t *testing.T) {
	r := usecase.NewResolver(&MockCatalogClient{}, usecase.WithAliases(map[string]string{
		"My-Fork":       "langchain",
		"pydantic-core": "pydantic-v2",
	}))

	gt.Equal(t, r.CanonicalID("langchain-core"), "langchain")
	gt.Equal(t, r.CanonicalID("@langchain/openai"), "langchain")
	gt.Equal(t, r.CanonicalID("Requests"), "requests")
	gt.Equal(t, r.CanonicalID("my-fork"), "langchain")
	gt.Equal(t, r.CanonicalID("pydantic-core"), "pydantic-v2")
}

func TestResolver_MigrationURL(t *testing.T) {
	r := usecase.NewResolver(&MockCatalogClient{}, usecase.WithDocsURL("https://docs.example.com/"))
	gt.Equal(t, r.MigrationURL("langchain", "v1.0.0"), "https://docs.example.com/langchain/migrating-to-1.0.0")
	gt.Equal(t, r.MigrationURL("react", "19.0.0"), "https://docs.example.com/react/migrating-to-19.0.0")
}

func TestLoadAliasFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.toml")
	gt.NoError(t, os.WriteFile(path, []byte(`[aliases]
"acme-langchain" = "langchain"
"@acme/sdk" = "acme"
`), 0600))

	aliases, err := usecase.LoadAliasFile(path)
	gt.NoError(t, err)
	gt.Equal(t, aliases["acme-langchain"], "langchain")
	gt.Equal(t, aliases["@acme/sdk"], "acme")

	t.Run("missing file", func(t *testing.T) {
		_, err := usecase.LoadAliasFile(filepath.Join(dir, "missing.toml"))
		gt.Error(t, err)
	})

	t.Run("invalid toml", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		gt.NoError(t, os.WriteFile(bad, []byte("[aliases\n"), 0600))
		_, err := usecase.LoadAliasFile(bad)
		gt.Error(t, err)
	})
}
