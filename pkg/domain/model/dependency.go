package model

// Ecosystem identifies the package registry a manifest belongs to
type Ecosystem string

const (
	EcosystemNPM  Ecosystem = "npm"
	EcosystemPyPI Ecosystem = "pypi"
)

// DependencyChange represents a version bump of a single package found in a manifest diff.
// FromVersion and ToVersion always differ.
type DependencyChange struct {
	Package     string    `json:"package"`
	FromVersion string    `json:"from_version"`
	ToVersion   string    `json:"to_version"`
	Ecosystem   Ecosystem `json:"ecosystem"`
}

// ChangedFile is a file touched by a pull request
type ChangedFile struct {
	Filename         string
	PreviousFilename string // Set only when the file was renamed
	Status           string // added, removed, modified, renamed, ...
}

// BaseFilename returns the path of the file on the base revision
func (f *ChangedFile) BaseFilename() string {
	if f.PreviousFilename != "" {
		return f.PreviousFilename
	}
	return f.Filename
}

// IsAdded reports whether the file does not exist on the base revision
func (f *ChangedFile) IsAdded() bool {
	return f.Status == "added"
}

// IsRemoved reports whether the file does not exist on the head revision
func (f *ChangedFile) IsRemoved() bool {
	return f.Status == "removed"
}
