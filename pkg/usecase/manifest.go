package usecase

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// ManifestKind is a supported dependency manifest format
type ManifestKind string

const (
	ManifestRequirements ManifestKind = "requirements.txt"
	ManifestPackageJSON  ManifestKind = "package.json"
	ManifestPyProject    ManifestKind = "pyproject.toml"
	ManifestUnknown      ManifestKind = ""
)

var (
	// name, optional extras, separator, numeric-dotted version
	requirementPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[[^\]]*\])?\s*[=~<>!]+\s*([0-9]+(?:\.[0-9]+)*)`)

	// "name>=1.2.3" anywhere in the document
	pyprojectPattern = regexp.MustCompile(`"([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[[^\]]*\])?\s*(?:==|>=|<=|~=|!=|>|<)\s*([0-9]+(?:\.[0-9]+)*)`)
)

// DetectManifestKind returns the manifest format of filename by suffix match
func DetectManifestKind(filename string) ManifestKind {
	for _, kind := range []ManifestKind{ManifestRequirements, ManifestPackageJSON, ManifestPyProject} {
		if strings.HasSuffix(filename, string(kind)) {
			return kind
		}
	}
	return ManifestUnknown
}

// ParseManifest extracts version changes between two snapshots of a manifest.
// Unknown filenames and unparsable snapshots produce no changes.
func ParseManifest(ctx context.Context, filename, oldContent, newContent string) []model.DependencyChange {
	switch DetectManifestKind(filename) {
	case ManifestRequirements:
		return diffVersions(parseRequirements(oldContent), parseRequirements(newContent), model.EcosystemPyPI)

	case ManifestPackageJSON:
		oldDeps := orEmpty(ctx, filename, "old")(parsePackageJSON(oldContent))
		newDeps := orEmpty(ctx, filename, "new")(parsePackageJSON(newContent))
		return diffVersions(stripRangeQualifiers(oldDeps), stripRangeQualifiers(newDeps), model.EcosystemNPM)

	case ManifestPyProject:
		return diffVersions(parsePyProject(oldContent), parsePyProject(newContent), model.EcosystemPyPI)

	default:
		return nil
	}
}

// orEmpty degrades a failed snapshot parse into an empty dependency map
func orEmpty(ctx context.Context, filename, side string) func(map[string]string, error) map[string]string {
	return func(deps map[string]string, err error) map[string]string {
		if err != nil {
			ctxlog.From(ctx).Debug("Treating unparsable manifest snapshot as empty",
				"filename", filename,
				"side", side,
				"error", err,
			)
			return map[string]string{}
		}
		return deps
	}
}

func parseRequirements(content string) map[string]string {
	deps := make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		m := requirementPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		deps[strings.ToLower(m[1])] = m[2]
	}

	return deps
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(content string) (map[string]string, error) {
	deps := make(map[string]string)
	if strings.TrimSpace(content) == "" {
		return deps, nil
	}

	var pkg packageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse package.json")
	}

	for name, version := range pkg.Dependencies {
		deps[strings.ToLower(name)] = version
	}
	// devDependencies take precedence on collision
	for name, version := range pkg.DevDependencies {
		deps[strings.ToLower(name)] = version
	}

	return deps, nil
}

func parsePyProject(content string) map[string]string {
	deps := make(map[string]string)
	for _, m := range pyprojectPattern.FindAllStringSubmatch(content, -1) {
		deps[strings.ToLower(m[1])] = m[2]
	}
	return deps
}

// stripRangeQualifiers removes a single leading ^ or ~ from every version
func stripRangeQualifiers(deps map[string]string) map[string]string {
	stripped := make(map[string]string, len(deps))
	for name, version := range deps {
		if strings.HasPrefix(version, "^") || strings.HasPrefix(version, "~") {
			version = version[1:]
		}
		stripped[name] = version
	}
	return stripped
}

// diffVersions reports packages present in both snapshots whose version differs, sorted by name
func diffVersions(oldDeps, newDeps map[string]string, ecosystem model.Ecosystem) []model.DependencyChange {
	var changes []model.DependencyChange

	for name, newVersion := range newDeps {
		oldVersion, ok := oldDeps[name]
		if !ok || oldVersion == newVersion {
			continue
		}
		changes = append(changes, model.DependencyChange{
			Package:     name,
			FromVersion: oldVersion,
			ToVersion:   newVersion,
			Ecosystem:   ecosystem,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Package < changes[j].Package
	})

	return changes
}
