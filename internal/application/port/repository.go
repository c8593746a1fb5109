package port

import (
	"context"

	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// RequestRepository defines persistence operations for Request
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error

	// GetByID returns nil when no request exists for the ID
	GetByID(ctx context.Context, id string) (*entity.Request, error)

	// Update writes the request with a version check. The stored row must
	// still carry req.Version; on success the version is incremented both in
	// the store and on req. A lost race returns workflow.ErrVersionConflict.
	Update(ctx context.Context, req *entity.Request) error

	List(ctx context.Context, limit, offset int) ([]*entity.Request, error)
	ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]*entity.Request, error)
}

// HistoryRepository defines persistence operations for the append-only stage
// history. There are deliberately no update or delete operations.
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.StageHistoryEntry) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.StageHistoryEntry, error)
}

// LedgerRepository defines persistence operations for BudgetLedger rows
type LedgerRepository interface {
	// Get returns nil when no ledger row exists for the key
	Get(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error)

	Create(ctx context.Context, ledger *entity.BudgetLedger) error

	// Update writes the balances with a version check, as RequestRepository.Update
	Update(ctx context.Context, ledger *entity.BudgetLedger) error
}

// HoldRepository defines persistence operations for LedgerHold
type HoldRepository interface {
	Create(ctx context.Context, hold *entity.LedgerHold) error
	GetByID(ctx context.Context, id string) (*entity.LedgerHold, error)

	// GetActiveByRequestID returns the request's active hold, nil when none
	GetActiveByRequestID(ctx context.Context, requestID string) (*entity.LedgerHold, error)

	// TransitionState moves a hold from one state to another. The write is
	// guarded on the expected current state; a mismatch returns
	// workflow.ErrVersionConflict.
	TransitionState(ctx context.Context, id string, from, to entity.HoldState) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
