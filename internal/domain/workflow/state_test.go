package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_PendingStage(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		wantStage Stage
		wantOK    bool
	}{
		{
			name:      "pending manager",
			state:     PendingState(StageManager),
			wantStage: StageManager,
			wantOK:    true,
		},
		{
			name:      "pending special approval",
			state:     PendingState(StageSpecialApproval),
			wantStage: StageSpecialApproval,
			wantOK:    true,
		},
		{
			name:   "draft is not pending",
			state:  StateDraft,
			wantOK: false,
		},
		{
			name:   "revision state is not pending",
			state:  RevisionState(StageHR),
			wantOK: false,
		},
		{
			name:   "pending prefix with unknown stage",
			state:  State("PENDING_JANITOR"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, ok := tt.state.PendingStage()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantStage, stage)
			}
		})
	}
}

func TestState_RevisionAndRejectedStage(t *testing.T) {
	stage, ok := RevisionState(StageAccounting).RevisionStage()
	assert.True(t, ok)
	assert.Equal(t, StageAccounting, stage)

	stage, ok = RejectedState(StageManager).RejectedStage()
	assert.True(t, ok)
	assert.Equal(t, StageManager, stage)

	// Prefixes do not cross over
	_, ok = RevisionState(StageHR).RejectedStage()
	assert.False(t, ok)
	_, ok = RejectedState(StageHR).RevisionStage()
	assert.False(t, ok)
}

func TestState_IsTerminal(t *testing.T) {
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
	assert.True(t, RejectedState(StageHR).IsTerminal())

	assert.False(t, StateDraft.IsTerminal())
	assert.False(t, PendingState(StageManager).IsTerminal())
	assert.False(t, RevisionState(StageManager).IsTerminal())
}

func TestState_IsValid(t *testing.T) {
	valid := []State{
		StateDraft,
		StateCompleted,
		StateCancelled,
		PendingState(StageManager),
		PendingState(StageAccounting),
		RevisionState(StageSpecialApproval),
		RejectedState(StageHR),
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}

	invalid := []State{
		State(""),
		State("PENDING_"),
		State("PENDING_UNKNOWN"),
		State("APPROVED"),
		State("REJECTED_"),
	}
	for _, s := range invalid {
		assert.False(t, s.IsValid(), "expected %s to be invalid", s)
	}
}

func TestStage_RequiredRole(t *testing.T) {
	assert.Equal(t, RoleManager, StageManager.RequiredRole())
	assert.Equal(t, RoleSpecialApprover, StageSpecialApproval.RequiredRole())
	assert.Equal(t, RoleHR, StageHR.RequiredRole())
	assert.Equal(t, RoleAccounting, StageAccounting.RequiredRole())
}
