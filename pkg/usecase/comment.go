package usecase

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/breakwatch/pkg/domain/types"
)

const (
	// CommentMarker identifies the comment posted by breakwatch so that later runs update it in place
	CommentMarker = "<!-- breakwatch:breaking-changes -->"

	maxTableRows     = 3
	maxChangeLength  = 80
	maxFixLength     = 60
	missingFixMarker = "-"
)

// FormatComment renders the Markdown report of results. The second return
// value is false when no result has breaking changes and nothing should be posted.
func FormatComment(results []model.BreakingResult) (string, bool) {
	var breaking []model.BreakingResult
	for _, r := range results {
		if r.HasBreakingChanges() {
			breaking = append(breaking, r)
		}
	}
	if len(breaking) == 0 {
		return "", false
	}

	var sb strings.Builder

	sb.WriteString(CommentMarker + "\n")
	sb.WriteString("## ⚠️ Breaking Changes Detected\n\n")
	sb.WriteString(fmt.Sprintf("This pull request updates %s with known breaking changes.\n\n", plural(len(breaking), "dependency", "dependencies")))

	for _, r := range breaking {
		sb.WriteString(fmt.Sprintf("### %s: %s → %s\n\n", r.Package, r.FromVersion, r.ToVersion))
		sb.WriteString(fmt.Sprintf("**%s**\n\n", plural(len(r.BreakingChanges), "breaking change", "breaking changes")))

		if len(r.BreakingChanges) <= maxTableRows {
			sb.WriteString("| Change | Fix |\n")
			sb.WriteString("|--------|-----|\n")
			for _, entry := range r.BreakingChanges {
				fix := missingFixMarker
				if entry.HasFix() {
					fix = tableCell(entry.Fix, maxFixLength)
				}
				sb.WriteString(fmt.Sprintf("| %s | %s |\n", tableCell(entry.Change, maxChangeLength), fix))
			}
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("[Migration guide](%s)\n\n", r.MigrationURL))
	}

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("🤖 Checked by %s\n", types.ServiceName))

	return sb.String(), true
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}

// tableCell truncates s to limit runes (ellipsis included) and keeps it on one table row
func tableCell(s string, limit int) string {
	s = truncate(strings.Join(strings.Fields(s), " "), limit)
	return strings.ReplaceAll(s, "|", `\|`)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
