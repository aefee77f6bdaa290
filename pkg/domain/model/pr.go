package model

import (
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
)

// PRInfo identifies the pull request to check and the revisions to compare
type PRInfo struct {
	Owner   string
	Repo    string
	Number  int
	BaseSHA string // Resolved from the API when empty
	HeadSHA string // Resolved from the API when empty
}

// FullName returns owner/repo
func (p *PRInfo) FullName() string {
	return p.Owner + "/" + p.Repo
}

// NewPRInfoFromEvent extracts pull request information from a pull_request event payload
func NewPRInfoFromEvent(event *github.PullRequestEvent) (*PRInfo, error) {
	if event.GetRepo() == nil {
		return nil, goerr.New("missing repository information in pull_request event")
	}
	if event.GetPullRequest() == nil {
		return nil, goerr.New("missing pull_request information in pull_request event")
	}

	info := &PRInfo{
		Owner:   event.GetRepo().GetOwner().GetLogin(),
		Repo:    event.GetRepo().GetName(),
		Number:  event.GetPullRequest().GetNumber(),
		BaseSHA: event.GetPullRequest().GetBase().GetSHA(),
		HeadSHA: event.GetPullRequest().GetHead().GetSHA(),
	}

	if info.Owner == "" || info.Repo == "" || info.Number == 0 {
		return nil, goerr.New("missing required fields in pull_request event",
			goerr.V("owner", info.Owner),
			goerr.V("repo", info.Repo),
			goerr.V("number", info.Number),
		)
	}

	return info, nil
}

// CheckReport is the outcome of one breaking change check run
type CheckReport struct {
	Changes     []DependencyChange
	Results     []BreakingResult
	Comment     string // Empty when nothing was posted
	HasBreaking bool
}

// BreakingCount returns the number of packages with at least one breaking change
func (r *CheckReport) BreakingCount() int {
	var n int
	for i := range r.Results {
		if r.Results[i].HasBreakingChanges() {
			n++
		}
	}
	return n
}
