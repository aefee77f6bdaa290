package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/m-mizutani/breakwatch/pkg/cli/config"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli/v3"
)

type diffOptions struct {
	oldPath  string
	newPath  string
	filename string
	resolve  bool
	showDiff bool
}

func cmdDiff() *cli.Command {
	var (
		opts       diffOptions
		catalogCfg config.Catalog
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "old",
			Usage:       "Manifest before the change. Missing means an empty manifest",
			Destination: &opts.oldPath,
		},
		&cli.StringFlag{
			Name:        "new",
			Usage:       "Manifest after the change. Missing means an empty manifest",
			Destination: &opts.newPath,
		},
		&cli.StringFlag{
			Name:        "filename",
			Usage:       "Manifest file name deciding the parser (default: base name of --new or --old)",
			Destination: &opts.filename,
		},
		&cli.BoolFlag{
			Name:        "resolve",
			Usage:       "Look up breaking changes in the catalog and print the comment",
			Destination: &opts.resolve,
		},
		&cli.BoolFlag{
			Name:        "show-diff",
			Usage:       "Print a unified diff of the two manifests",
			Destination: &opts.showDiff,
		},
	}
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:    "diff",
		Aliases: []string{"d"},
		Usage:   "Show dependency version changes between two local manifests",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var resolver *usecase.Resolver
			if opts.resolve {
				r, err := catalogCfg.NewResolver()
				if err != nil {
					return err
				}
				resolver = r
			}
			return runDiff(ctx, c.Root().Writer, opts, resolver)
		},
	}
}

func runDiff(ctx context.Context, w io.Writer, opts diffOptions, resolver *usecase.Resolver) error {
	if opts.oldPath == "" && opts.newPath == "" {
		return goerr.New("at least one of --old or --new is required")
	}

	filename := opts.filename
	if filename == "" {
		filename = filepath.Base(opts.newPath)
		if opts.newPath == "" {
			filename = filepath.Base(opts.oldPath)
		}
	}
	if usecase.DetectManifestKind(filename) == usecase.ManifestUnknown {
		return goerr.New("unsupported manifest file", goerr.V("filename", filename))
	}

	oldContent, err := readManifest(opts.oldPath)
	if err != nil {
		return err
	}
	newContent, err := readManifest(opts.newPath)
	if err != nil {
		return err
	}

	if opts.showDiff {
		if err := printUnifiedDiff(w, opts, oldContent, newContent); err != nil {
			return err
		}
	}

	changes := usecase.ParseManifest(ctx, filename, oldContent, newContent)
	printChanges(w, changes)

	if resolver == nil || len(changes) == 0 {
		return nil
	}

	results := resolver.Resolve(ctx, changes)
	comment, ok := usecase.FormatComment(results)
	if !ok {
		color.New(color.FgGreen).Fprintln(w, "No known breaking changes")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, comment)
	return nil
}

// readManifest returns file content, or empty content for an empty path or missing file
func readManifest(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	return string(data), nil
}

func printUnifiedDiff(w io.Writer, opts diffOptions, oldContent, newContent string) error {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: orDevNull(opts.oldPath),
		ToFile:   orDevNull(opts.newPath),
		Context:  3,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to build unified diff")
	}

	fmt.Fprint(w, text)
	if text != "" {
		fmt.Fprintln(w)
	}
	return nil
}

func orDevNull(path string) string {
	if path == "" {
		return "/dev/null"
	}
	return path
}

func printChanges(w io.Writer, changes []model.DependencyChange) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No dependency version changes")
		return
	}

	name := color.New(color.Bold)
	from := color.New(color.FgRed)
	to := color.New(color.FgGreen)

	for _, change := range changes {
		fmt.Fprintf(w, "%s (%s): %s → %s\n",
			name.Sprint(change.Package),
			change.Ecosystem,
			from.Sprint(change.FromVersion),
			to.Sprint(change.ToVersion),
		)
	}
}
