package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_FireTransitions(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, PendingState(StageManager)).
		Permit(TriggerCancel, StateCancelled)
	builder.Configure(PendingState(StageManager)).
		Permit(TriggerApprove, PendingState(StageAccounting)).
		Permit(TriggerReject, RejectedState(StageManager))

	sm := builder.Build(StateDraft)
	assert.Equal(t, StateDraft, sm.State())

	err := sm.Fire(context.Background(), TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, PendingState(StageManager), sm.State())

	err = sm.Fire(context.Background(), TriggerApprove)
	require.NoError(t, err)
	assert.Equal(t, PendingState(StageAccounting), sm.State())
}

func TestStateMachine_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, PendingState(StageManager))

	sm := builder.Build(StateDraft)

	err := sm.Fire(context.Background(), TriggerApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateDraft, sm.State(), "failed fire must not change state")

	// States with no configuration at all reject everything
	sm2 := builder.Build(StateCompleted)
	err = sm2.Fire(context.Background(), TriggerSubmit)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStateMachine_GuardedTransition(t *testing.T) {
	allow := false

	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, PendingState(StageManager), func(ctx context.Context) bool {
			return allow
		})

	sm := builder.Build(StateDraft)

	err := sm.Fire(context.Background(), TriggerSubmit)
	assert.ErrorIs(t, err, ErrGuardFailed)
	assert.Equal(t, StateDraft, sm.State())

	allow = true
	err = sm.Fire(context.Background(), TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, PendingState(StageManager), sm.State())
}

func TestStateMachine_CanFireAndPermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(PendingState(StageHR)).
		Permit(TriggerApprove, PendingState(StageAccounting)).
		Permit(TriggerReject, RejectedState(StageHR)).
		Permit(TriggerRequestRevision, RevisionState(StageHR))

	sm := builder.Build(PendingState(StageHR))

	assert.True(t, sm.CanFire(TriggerApprove))
	assert.True(t, sm.CanFire(TriggerReject))
	assert.False(t, sm.CanFire(TriggerSubmit))

	triggers := sm.PermittedTriggers()
	assert.ElementsMatch(t, []Trigger{TriggerApprove, TriggerReject, TriggerRequestRevision}, triggers)
}

func TestStateMachine_BuiltMachinesAreIndependent(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, PendingState(StageManager))

	sm1 := builder.Build(StateDraft)
	sm2 := builder.Build(StateDraft)

	require.NoError(t, sm1.Fire(context.Background(), TriggerSubmit))
	assert.Equal(t, PendingState(StageManager), sm1.State())
	assert.Equal(t, StateDraft, sm2.State())
}

func TestStateMachine_InvalidStatePanics(t *testing.T) {
	builder := NewBuilder()

	assert.Panics(t, func() {
		builder.Configure(State("NOT_A_STATE"))
	})
	assert.Panics(t, func() {
		builder.Configure(StateDraft).Permit(TriggerSubmit, State("PENDING_NOWHERE"))
	})
	assert.Panics(t, func() {
		builder.Build(State(""))
	})
}
