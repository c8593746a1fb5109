package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrUnknownCategory is returned when no workflow definition exists for a
	// request category. This is a configuration fault, never retried.
	ErrUnknownCategory = errors.New("unknown request category")

	// ErrInvalidAmount is returned when a request amount is negative
	ErrInvalidAmount = errors.New("request amount must not be negative")

	// ErrInsufficientBudget is returned when the requester's available budget
	// cannot cover the requested amount. A routine business outcome.
	ErrInsufficientBudget = errors.New("insufficient budget")

	// ErrNotAuthorizedForStage is returned when the actor does not hold the
	// role required by the request's current stage
	ErrNotAuthorizedForStage = errors.New("actor not authorized for stage")

	// ErrStaleState is returned when the request's state no longer permits the
	// attempted action, including after losing an optimistic write race
	ErrStaleState = errors.New("request state is stale")

	// ErrContention is returned after the bounded optimistic retry budget is
	// exhausted by persistent write conflicts
	ErrContention = errors.New("too much contention on request or ledger")

	// ErrVersionConflict signals a single lost compare-and-swap write. Callers
	// retry from a fresh read; it is never surfaced to API clients directly.
	ErrVersionConflict = errors.New("optimistic version conflict")

	// ErrRevisionIncomplete is returned when a resubmission lacks the new
	// attachments the revision request demanded
	ErrRevisionIncomplete = errors.New("revision incomplete: new attachments required")

	// ErrNotOwner is returned when an actor other than the original requester
	// attempts a requester-only action
	ErrNotOwner = errors.New("actor is not the request owner")

	// ErrNotCancellable is returned when a cancel is attempted from a state
	// that does not permit it
	ErrNotCancellable = errors.New("request is not cancellable in its current state")

	// ErrHoldConflict is returned when a ledger hold is asked to finalize with
	// an outcome that contradicts the terminal state it already reached
	ErrHoldConflict = errors.New("ledger hold already finalized with a different outcome")

	// ErrRequestNotFound is returned when a request ID resolves to nothing
	ErrRequestNotFound = errors.New("request not found")

	// ErrNegativeBalance guards the ledger invariant available >= 0; hitting it
	// outside of the insufficient-budget path indicates a programming error
	ErrNegativeBalance = errors.New("ledger mutation would make available balance negative")
)
