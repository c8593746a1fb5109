package entity

import (
	"time"

	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// StageHistoryEntry is one record in a request's append-only audit trail.
// Entries are never updated or deleted.
type StageHistoryEntry struct {
	ID            int64            `json:"id"`
	RequestID     string           `json:"request_id"`
	Stage         workflow.Stage   `json:"stage,omitempty"` // empty for submit/cancel actions
	ActorID       string           `json:"actor_id"`
	Action        workflow.Trigger `json:"action"`
	Note          string           `json:"note,omitempty"`
	PreviousState workflow.State   `json:"previous_state"`
	NewState      workflow.State   `json:"new_state"`
	Timestamp     time.Time        `json:"timestamp"`
}
