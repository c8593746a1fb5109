package workflow

import (
	domainwf "github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// BuildRequestStateMachine creates a state machine for one request instance
// from its frozen stage sequence. Cancellation is permitted from draft and
// from any pending stage before the final one; revision loops return to the
// stage that asked for them.
func BuildRequestStateMachine(sequence []domainwf.Stage, current domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	draft := builder.Configure(domainwf.StateDraft)
	draft.Permit(domainwf.TriggerCancel, domainwf.StateCancelled)
	if len(sequence) > 0 {
		draft.Permit(domainwf.TriggerSubmit, domainwf.PendingState(sequence[0]))
	}

	for i, stage := range sequence {
		next := domainwf.StateCompleted
		if i+1 < len(sequence) {
			next = domainwf.PendingState(sequence[i+1])
		}

		pending := builder.Configure(domainwf.PendingState(stage)).
			Permit(domainwf.TriggerApprove, next).
			Permit(domainwf.TriggerReject, domainwf.RejectedState(stage)).
			Permit(domainwf.TriggerRequestRevision, domainwf.RevisionState(stage))
		if i+1 < len(sequence) {
			pending.Permit(domainwf.TriggerCancel, domainwf.StateCancelled)
		}

		builder.Configure(domainwf.RevisionState(stage)).
			Permit(domainwf.TriggerResubmit, domainwf.PendingState(stage))
	}

	// Terminal states (completed, rejected, cancelled) get no outgoing transitions

	return builder.Build(current)
}
