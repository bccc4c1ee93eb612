package workflow

import "strings"

// Event kinds the pipeline reacts to.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventDispatch    = "dispatch"
)

// Pull request actions that start a build.
const (
	ActionOpened      = "opened"
	ActionSynchronize = "synchronize"
	ActionReopened    = "reopened"
)

// Event is a normalized trigger event.
type Event struct {
	Kind    string
	Ref     string // refs/heads/<branch> for pushes
	Branch  string // target branch for pull requests
	Action  string // pull request action
	SHA     string
	Message string // head commit message
	Actor   string
	Version string // explicit version for dispatch
}

// BranchName returns the branch an event refers to.
func (ev Event) BranchName() string {
	if ev.Branch != "" {
		return ev.Branch
	}
	return strings.TrimPrefix(ev.Ref, "refs/heads/")
}

// Decision is the outcome of matching an event against the triggers.
type Decision struct {
	Matched bool
	// BuildOnly is set for events that build but never release.
	BuildOnly bool
	Reason    string
}

// Evaluate decides whether an event starts the pipeline and in which
// mode. Pull request events are always build-only.
func (f *File) Evaluate(ev Event) Decision {
	switch ev.Kind {
	case EventPush:
		if f.On.Push == nil {
			return Decision{Reason: "push trigger not configured"}
		}
		branch := ev.BranchName()
		if !branchListed(f.On.Push.Branches, branch) {
			return Decision{Reason: "branch " + branch + " is not listed for push"}
		}
		return Decision{Matched: true, Reason: "push to " + branch}

	case EventPullRequest:
		if f.On.PullRequest == nil {
			return Decision{Reason: "pull_request trigger not configured"}
		}
		switch ev.Action {
		case ActionOpened, ActionSynchronize, ActionReopened:
		default:
			return Decision{Reason: "pull_request action " + ev.Action + " is ignored"}
		}
		branch := ev.BranchName()
		if !branchListed(f.On.PullRequest.Branches, branch) {
			return Decision{Reason: "target branch " + branch + " is not listed for pull_request"}
		}
		return Decision{Matched: true, BuildOnly: true, Reason: "pull request targeting " + branch}

	case EventDispatch:
		if f.On.Dispatch == nil {
			return Decision{Reason: "dispatch trigger not configured"}
		}
		return Decision{Matched: true, Reason: "manual dispatch"}

	default:
		return Decision{Reason: "unknown event " + ev.Kind}
	}
}

func branchListed(branches []string, branch string) bool {
	for _, b := range branches {
		if b == branch {
			return true
		}
	}
	return false
}
