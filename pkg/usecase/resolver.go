package usecase

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// DefaultDocsURL is the base URL of published migration guides
const DefaultDocsURL = "https://breakingchanges.dev"

const releaseLimit = 50

// defaultAliases maps manifest package names to catalog identifiers
var defaultAliases = map[string]string{
	"langchain-core":            "langchain",
	"langchain-community":       "langchain",
	"langchain-openai":          "langchain",
	"langchain-anthropic":       "langchain",
	"langchain-text-splitters":  "langchain",
	"@langchain/core":           "langchain",
	"@langchain/openai":         "langchain",
	"@langchain/community":      "langchain",
	"langgraph-checkpoint":      "langgraph",
	"@langchain/langgraph":      "langgraph",
	"llama-index-core":          "llama-index",
	"llama-index-llms-openai":   "llama-index",
	"pydantic-core":             "pydantic",
	"pydantic-settings":         "pydantic",
	"@anthropic-ai/sdk":         "anthropic",
	"@openai/agents":            "openai-agents",
	"openai-agents":             "openai-agents",
	"@modelcontextprotocol/sdk": "mcp",
}

// ResolverOption configures Resolver
type ResolverOption func(*Resolver)

// WithDocsURL sets the base URL of migration guides
func WithDocsURL(docsURL string) ResolverOption {
	return func(r *Resolver) {
		r.docsURL = strings.TrimRight(docsURL, "/")
	}
}

// WithAliases adds or overrides package name to catalog identifier mappings
func WithAliases(aliases map[string]string) ResolverOption {
	return func(r *Resolver) {
		for name, id := range aliases {
			r.aliases[strings.ToLower(name)] = id
		}
	}
}

// Resolver looks up known breaking changes of dependency changes in the catalog
type Resolver struct {
	catalog interfaces.CatalogClient
	docsURL string
	aliases map[string]string
}

// NewResolver creates a Resolver backed by catalog
func NewResolver(catalog interfaces.CatalogClient, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog: catalog,
		docsURL: DefaultDocsURL,
		aliases: make(map[string]string, len(defaultAliases)),
	}
	for name, id := range defaultAliases {
		r.aliases[name] = id
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadAliasFile reads alias overrides from a TOML file:
//
//	[aliases]
//	"my-langchain-fork" = "langchain"
func LoadAliasFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read alias file", goerr.V("path", path))
	}

	var file struct {
		Aliases map[string]string `toml:"aliases"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse alias file", goerr.V("path", path))
	}

	return file.Aliases, nil
}

// CanonicalID returns the catalog identifier of a package
func (r *Resolver) CanonicalID(pkg string) string {
	name := strings.ToLower(pkg)
	if id, ok := r.aliases[name]; ok {
		return id
	}
	return name
}

// MigrationURL returns the migration guide URL of a package version
func (r *Resolver) MigrationURL(packageID, toVersion string) string {
	return r.docsURL + "/" + packageID + "/migrating-to-" + strings.TrimPrefix(toVersion, "v")
}

// Resolve returns one BreakingResult per change, in input order. Lookups run
// one at a time and a failed lookup yields an empty list of breaking changes.
func (r *Resolver) Resolve(ctx context.Context, changes []model.DependencyChange) []model.BreakingResult {
	results := make([]model.BreakingResult, 0, len(changes))

	for _, change := range changes {
		id := r.CanonicalID(change.Package)

		entries := orNoBreakingChanges(ctx, change)(firstSuccess(ctx,
			r.lookupDiff(id, change),
			r.lookupRelease(id, change),
		))

		results = append(results, model.BreakingResult{
			Package:         change.Package,
			FromVersion:     change.FromVersion,
			ToVersion:       change.ToVersion,
			BreakingChanges: entries,
			MigrationURL:    r.MigrationURL(id, change.ToVersion),
		})
	}

	return results
}

type lookupFunc func(ctx context.Context) ([]model.BreakingChangeEntry, error)

// firstSuccess runs lookups in order and returns the first successful result.
// When all of them fail, the last error is returned.
func firstSuccess(ctx context.Context, lookups ...lookupFunc) ([]model.BreakingChangeEntry, error) {
	logger := ctxlog.From(ctx)

	var lastErr error
	for i, lookup := range lookups {
		entries, err := lookup(ctx)
		if err == nil {
			return entries, nil
		}
		if i < len(lookups)-1 {
			logger.Debug("Catalog lookup failed, trying next source", "step", i, "error", err)
		}
		lastErr = err
	}

	return nil, lastErr
}

// orNoBreakingChanges degrades a failed lookup into an empty list of breaking changes
func orNoBreakingChanges(ctx context.Context, change model.DependencyChange) func([]model.BreakingChangeEntry, error) []model.BreakingChangeEntry {
	return func(entries []model.BreakingChangeEntry, err error) []model.BreakingChangeEntry {
		if err != nil {
			ctxlog.From(ctx).Warn("Failed to look up breaking changes",
				"package", change.Package,
				"from", change.FromVersion,
				"to", change.ToVersion,
				"error", err,
			)
			return []model.BreakingChangeEntry{}
		}
		if entries == nil {
			return []model.BreakingChangeEntry{}
		}
		return entries
	}
}

func (r *Resolver) lookupDiff(id string, change model.DependencyChange) lookupFunc {
	return func(ctx context.Context) ([]model.BreakingChangeEntry, error) {
		diff, err := r.catalog.Diff(ctx, id, change.FromVersion, change.ToVersion)
		if err != nil {
			return nil, goerr.Wrap(err, "diff lookup failed", goerr.V("package", id))
		}
		return model.CompactEntries(diff.BreakingChanges), nil
	}
}

func (r *Resolver) lookupRelease(id string, change model.DependencyChange) lookupFunc {
	return func(ctx context.Context) ([]model.BreakingChangeEntry, error) {
		releases, err := r.catalog.Releases(ctx, id, releaseLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "release lookup failed", goerr.V("package", id))
		}

		var (
			matched  *model.CatalogRelease
			bestRank int
		)
		for i := range releases {
			if rank := releaseTagRank(releases[i].Tag, id, change.ToVersion); rank > bestRank {
				matched, bestRank = &releases[i], rank
			}
		}
		if matched != nil {
			return model.CompactEntries(matched.BreakingChanges), nil
		}

		return nil, goerr.New("no release matches target version",
			goerr.V("package", id),
			goerr.V("version", change.ToVersion),
			goerr.V("release_count", len(releases)),
		)
	}
}

const (
	tagNoMatch = iota
	tagSuffixMatch
	tagExactMatch
)

// releaseTagRank scores how well tag names version of package id. "1.0.0",
// "v1.0.0" and "langchain==1.0.0" are exact for langchain 1.0.0, while another
// package's "langchain-core==1.0.0" only matches by suffix.
func releaseTagRank(tag, id, version string) int {
	switch {
	case tag == version,
		strings.TrimPrefix(tag, "v") == strings.TrimPrefix(version, "v"),
		strings.EqualFold(tag, id+"=="+version):
		return tagExactMatch
	case strings.HasSuffix(tag, "=="+version):
		return tagSuffixMatch
	default:
		return tagNoMatch
	}
}
