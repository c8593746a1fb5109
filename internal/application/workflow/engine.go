package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefit-approval/internal/domain/entity"
	domainwf "github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// SubmitInput carries everything needed to create and submit a request
type SubmitInput struct {
	Category    domainwf.Category
	RequesterID string
	Amount      decimal.Decimal
	Payload     string   // submitted form data, JSON
	Attachments []string // opaque URIs
}

// Engine is the approval workflow engine. It validates actors against the
// request's current stage, applies transitions, drives the budget ledger, and
// emits domain events after each durably committed transition.
type Engine interface {
	// Submit creates a request, reserves budget, and moves it to the first
	// pending stage. On insufficient budget the request is persisted in draft
	// and returned together with domainwf.ErrInsufficientBudget.
	Submit(ctx context.Context, in SubmitInput) (*entity.Request, error)

	// Approve records an approval by actorID at the request's current stage
	Approve(ctx context.Context, requestID, actorID string) error

	// Reject terminates the request at its current stage and releases the hold
	Reject(ctx context.Context, requestID, actorID, reason string) error

	// RequestRevision sends the request back to its requester for more
	// documents without touching the ledger hold
	RequestRevision(ctx context.Context, requestID, actorID, note string, attachmentsRequired bool) error

	// Resubmit returns a revision-requested request to the stage that sent it
	// back, recording any newly supplied attachments
	Resubmit(ctx context.Context, requestID, requesterID string, attachments []string) error

	// Cancel withdraws a request before its final stage, releasing any hold
	Cancel(ctx context.Context, requestID, requesterID string) error

	// GetRequest returns a request by ID
	GetRequest(ctx context.Context, requestID string) (*entity.Request, error)

	// ListRequests returns requests newest first, optionally filtered to a
	// single requester. A non-positive limit falls back to the default page
	// size.
	ListRequests(ctx context.Context, requesterID string, limit, offset int) ([]*entity.Request, error)

	// GetHistory returns the request's append-only stage history
	GetHistory(ctx context.Context, requestID string) ([]*entity.StageHistoryEntry, error)

	// GetLedgerSnapshot returns current balances for an employee and category
	GetLedgerSnapshot(ctx context.Context, employeeID string, category domainwf.Category) (*entity.BudgetLedger, error)
}
