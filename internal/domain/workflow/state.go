package workflow

import "strings"

// State represents a workflow state in the request approval lifecycle.
// Stage-scoped states encode the stage they refer to, e.g. PENDING_MANAGER
// or REJECTED_ACCOUNTING.
type State string

const (
	StateDraft     State = "DRAFT"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
)

const (
	pendingPrefix  = "PENDING_"
	revisionPrefix = "REVISION_REQUESTED_"
	rejectedPrefix = "REJECTED_"
)

// PendingState returns the state for a request awaiting a decision at stage
func PendingState(stage Stage) State {
	return State(pendingPrefix + string(stage))
}

// RevisionState returns the state for a request sent back for revision by stage
func RevisionState(stage Stage) State {
	return State(revisionPrefix + string(stage))
}

// RejectedState returns the terminal rejection state for stage
func RejectedState(stage Stage) State {
	return State(rejectedPrefix + string(stage))
}

// IsPending returns true if the state is awaiting a decision at some stage
func (s State) IsPending() bool {
	_, ok := s.PendingStage()
	return ok
}

// PendingStage returns the stage a pending state refers to
func (s State) PendingStage() (Stage, bool) {
	return s.stageWithPrefix(pendingPrefix)
}

// RevisionStage returns the stage a revision_requested state refers to
func (s State) RevisionStage() (Stage, bool) {
	return s.stageWithPrefix(revisionPrefix)
}

// RejectedStage returns the stage a rejected state refers to
func (s State) RejectedStage() (Stage, bool) {
	return s.stageWithPrefix(rejectedPrefix)
}

func (s State) stageWithPrefix(prefix string) (Stage, bool) {
	if !strings.HasPrefix(string(s), prefix) {
		return "", false
	}
	stage := Stage(strings.TrimPrefix(string(s), prefix))
	if !stage.IsValid() {
		return "", false
	}
	return stage, true
}

// IsTerminal returns true if no further transitions are possible from the state
func (s State) IsTerminal() bool {
	if s == StateCompleted || s == StateCancelled {
		return true
	}
	_, rejected := s.RejectedStage()
	return rejected
}

// IsValid returns true if the state is a well-formed workflow state
func (s State) IsValid() bool {
	if s == StateDraft || s == StateCompleted || s == StateCancelled {
		return true
	}
	for _, prefix := range []string{pendingPrefix, revisionPrefix, rejectedPrefix} {
		if _, ok := s.stageWithPrefix(prefix); ok {
			return true
		}
	}
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
