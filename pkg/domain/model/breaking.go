package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// BreakingChangeEntry is a single known breaking change of a package release
type BreakingChangeEntry struct {
	Change string `json:"change"`
	Fix    string `json:"fix,omitempty"`
}

// HasFix reports whether the catalog provided a remediation
func (e BreakingChangeEntry) HasFix() bool {
	return e.Fix != ""
}

// IsEmpty reports whether the entry carries no description of a change
func (e BreakingChangeEntry) IsEmpty() bool {
	return strings.TrimSpace(e.Change) == ""
}

// UnmarshalJSON accepts both a plain string and an object carrying
// change/description/fix. An object with neither change nor description is
// kept as its raw JSON text. null leaves the entry untouched.
func (e *BreakingChangeEntry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*e = BreakingChangeEntry{Change: text}
		return nil
	}

	var obj struct {
		Change      string `json:"change"`
		Description string `json:"description"`
		Fix         string `json:"fix"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return goerr.Wrap(err, "invalid breaking change entry", goerr.V("raw", string(data)))
	}

	switch {
	case obj.Change != "":
		e.Change = obj.Change
	case obj.Description != "":
		e.Change = obj.Description
	default:
		e.Change = string(data)
	}
	e.Fix = obj.Fix
	return nil
}

// BreakingResult is the resolved breaking-change information of one DependencyChange
type BreakingResult struct {
	Package         string                `json:"package"`
	FromVersion     string                `json:"from_version"`
	ToVersion       string                `json:"to_version"`
	BreakingChanges []BreakingChangeEntry `json:"breaking_changes"`
	MigrationURL    string                `json:"migration_url"`
}

// HasBreakingChanges reports whether at least one breaking change is known
func (r *BreakingResult) HasBreakingChanges() bool {
	return len(r.BreakingChanges) > 0
}

// CompactEntries returns entries without empty ones, keeping order
func CompactEntries(entries []BreakingChangeEntry) []BreakingChangeEntry {
	compacted := make([]BreakingChangeEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsEmpty() {
			compacted = append(compacted, entry)
		}
	}
	return compacted
}

// CatalogDiff is the response of the catalog diff endpoint
type CatalogDiff struct {
	BreakingChanges []BreakingChangeEntry `json:"breaking_changes"`
}

// CatalogRelease is an element of the catalog release listing
type CatalogRelease struct {
	Tag             string                `json:"tag"`
	BreakingChanges []BreakingChangeEntry `json:"breaking_changes"`
}
