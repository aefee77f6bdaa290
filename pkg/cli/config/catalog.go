package config

import (
	"github.com/m-mizutani/breakwatch/pkg/infra/catalog"
	"github.com/m-mizutani/breakwatch/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Catalog holds breaking change catalog configuration
type Catalog struct {
	URL       string
	DocsURL   string
	Token     string `masq:"secret"`
	AliasFile string
}

// Flags returns CLI flags for catalog configuration
func (c *Catalog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog-url",
			Usage:       "Base URL of the breaking change catalog API",
			Value:       catalog.DefaultBaseURL,
			Destination: &c.URL,
			Sources:     cli.EnvVars("BREAKWATCH_CATALOG_URL"),
		},
		&cli.StringFlag{
			Name:        "catalog-docs-url",
			Usage:       "Base URL of migration guides",
			Value:       usecase.DefaultDocsURL,
			Destination: &c.DocsURL,
			Sources:     cli.EnvVars("BREAKWATCH_CATALOG_DOCS_URL"),
		},
		&cli.StringFlag{
			Name:        "catalog-token",
			Usage:       "Bearer token for the catalog API",
			Destination: &c.Token,
			Sources:     cli.EnvVars("BREAKWATCH_CATALOG_TOKEN", "INPUT_CATALOG_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "alias-file",
			Usage:       "TOML file with [aliases] mapping package names to catalog identifiers",
			Destination: &c.AliasFile,
			Sources:     cli.EnvVars("BREAKWATCH_ALIAS_FILE"),
		},
	}
}

// NewResolver builds a breaking change resolver backed by the catalog API
func (c *Catalog) NewResolver() (*usecase.Resolver, error) {
	var clientOpts []catalog.Option
	if c.Token != "" {
		clientOpts = append(clientOpts, catalog.WithToken(c.Token))
	}

	opts := []usecase.ResolverOption{
		usecase.WithDocsURL(c.DocsURL),
	}

	if c.AliasFile != "" {
		aliases, err := usecase.LoadAliasFile(c.AliasFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load alias file")
		}
		opts = append(opts, usecase.WithAliases(aliases))
	}

	return usecase.NewResolver(catalog.NewClient(c.URL, clientOpts...), opts...), nil
}
