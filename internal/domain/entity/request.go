package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// Request represents a benefit/expense request moving through the approval
// workflow. State transitions happen only through the approval engine; the
// Version field backs optimistic concurrency on every write.
type Request struct {
	ID            string               `json:"id"`
	Category      workflow.Category    `json:"category"`
	RequesterID   string               `json:"requester_id"`
	Amount        decimal.Decimal      `json:"amount"`
	CurrentState  workflow.State       `json:"current_state"`
	StageSequence []workflow.Stage     `json:"stage_sequence"` // resolved at submission, frozen
	Attachments   []string             `json:"attachments"`    // opaque URIs
	Payload       string               `json:"payload"`        // submitted form data, JSON
	Revision      *RevisionInfo        `json:"revision,omitempty"`
	LedgerHoldID  *string              `json:"ledger_hold_id,omitempty"`
	Version       int64                `json:"version"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RevisionInfo marks a pending send-back-for-revision cycle. Present only
// while the requester owes a resubmission.
type RevisionInfo struct {
	RequestedBy         string         `json:"requested_by"`
	Stage               workflow.Stage `json:"stage"`
	Note                string         `json:"note"`
	AttachmentsRequired bool           `json:"attachments_required"`
	RequestedAt         time.Time      `json:"requested_at"`
}

// FinalStage returns the last stage of the frozen sequence
func (r *Request) FinalStage() (workflow.Stage, bool) {
	if len(r.StageSequence) == 0 {
		return "", false
	}
	return r.StageSequence[len(r.StageSequence)-1], true
}

// NextStage returns the stage following the given one in the frozen sequence,
// or false when stage is the final one
func (r *Request) NextStage(stage workflow.Stage) (workflow.Stage, bool) {
	for i, s := range r.StageSequence {
		if s == stage && i+1 < len(r.StageSequence) {
			return r.StageSequence[i+1], true
		}
	}
	return "", false
}

// IsCancellable reports whether the request may still be cancelled by its
// requester: draft, or pending at any stage before the final one
func (r *Request) IsCancellable() bool {
	if r.CurrentState == workflow.StateDraft {
		return true
	}
	stage, ok := r.CurrentState.PendingStage()
	if !ok {
		return false
	}
	final, ok := r.FinalStage()
	return ok && stage != final
}
