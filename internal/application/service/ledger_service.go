package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LedgerService owns the reserve/commit/release lifecycle of budget holds.
// Mutating operations expect to run inside the caller's transaction context;
// version conflicts bubble up as workflow.ErrVersionConflict for the caller's
// retry wrapper.
type LedgerService interface {
	// Reserve places a hold for amount against (employeeID, category).
	// Returns workflow.ErrInsufficientBudget when available < amount.
	Reserve(ctx context.Context, employeeID string, category workflow.Category, amount decimal.Decimal, requestID string) (*entity.LedgerHold, error)

	// Commit converts an active hold into a permanent debit. Committing an
	// already-committed hold is a no-op; committing a released hold fails
	// with workflow.ErrHoldConflict.
	Commit(ctx context.Context, holdID string) error

	// Release discards an active hold, restoring its amount to available
	// budget. Idempotent like Commit, with the mirrored conflict rule.
	Release(ctx context.Context, holdID string) error

	// Snapshot returns the current balances for (employeeID, category).
	// Employees with no ledger row yet see the default limit, untouched.
	Snapshot(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error)
}

// LimitPolicy supplies the total limit for a ledger row provisioned on first use
type LimitPolicy func(category workflow.Category) decimal.Decimal

type ledgerServiceImpl struct {
	ledgerRepo port.LedgerRepository
	holdRepo   port.HoldRepository
	limitFor   LimitPolicy
	logger     Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	ledgerRepo port.LedgerRepository,
	holdRepo port.HoldRepository,
	limitFor LimitPolicy,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		ledgerRepo: ledgerRepo,
		holdRepo:   holdRepo,
		limitFor:   limitFor,
		logger:     logger,
	}
}

// Reserve places a hold for amount against the employee's category ledger
func (s *ledgerServiceImpl) Reserve(ctx context.Context, employeeID string, category workflow.Category, amount decimal.Decimal, requestID string) (*entity.LedgerHold, error) {
	if amount.IsNegative() {
		return nil, workflow.ErrInvalidAmount
	}

	ledger, err := s.getOrProvision(ctx, employeeID, category)
	if err != nil {
		return nil, err
	}

	if !ledger.CanReserve(amount) {
		s.logger.Info("Reservation refused, insufficient budget",
			"employee_id", employeeID,
			"category", category.String(),
			"amount", amount.String(),
			"available", ledger.Available().String(),
		)
		return nil, fmt.Errorf("%w: available %s, requested %s",
			workflow.ErrInsufficientBudget, ledger.Available(), amount)
	}

	existing, err := s.holdRepo.GetActiveByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("check active hold: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("request %s already has active hold %s", requestID, existing.ID)
	}

	ledger.Reserved = ledger.Reserved.Add(amount)
	if ledger.Available().IsNegative() {
		return nil, workflow.ErrNegativeBalance
	}
	if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
		return nil, err
	}

	now := time.Now()
	hold := &entity.LedgerHold{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		EmployeeID: employeeID,
		Category:   category,
		Amount:     amount,
		State:      entity.HoldStateActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.holdRepo.Create(ctx, hold); err != nil {
		return nil, fmt.Errorf("create hold: %w", err)
	}

	s.logger.Info("Budget reserved",
		"hold_id", hold.ID,
		"request_id", requestID,
		"employee_id", employeeID,
		"category", category.String(),
		"amount", amount.String(),
	)
	return hold, nil
}

// Commit converts an active hold into a permanent debit
func (s *ledgerServiceImpl) Commit(ctx context.Context, holdID string) error {
	return s.finalize(ctx, holdID, entity.HoldStateCommitted)
}

// Release discards an active hold
func (s *ledgerServiceImpl) Release(ctx context.Context, holdID string) error {
	return s.finalize(ctx, holdID, entity.HoldStateReleased)
}

func (s *ledgerServiceImpl) finalize(ctx context.Context, holdID string, target entity.HoldState) error {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		return fmt.Errorf("get hold: %w", err)
	}
	if hold == nil {
		return fmt.Errorf("hold %s not found", holdID)
	}

	if hold.State == target {
		// Already finalized with the same outcome
		return nil
	}
	if hold.State.IsTerminal() {
		return fmt.Errorf("%w: hold %s is %s, wanted %s", workflow.ErrHoldConflict, holdID, hold.State, target)
	}

	ledger, err := s.ledgerRepo.Get(ctx, hold.EmployeeID, hold.Category)
	if err != nil {
		return fmt.Errorf("get ledger: %w", err)
	}
	if ledger == nil {
		return fmt.Errorf("ledger row missing for employee %s category %s", hold.EmployeeID, hold.Category)
	}

	ledger.Reserved = ledger.Reserved.Sub(hold.Amount)
	if target == entity.HoldStateCommitted {
		ledger.Committed = ledger.Committed.Add(hold.Amount)
	}
	if ledger.Reserved.IsNegative() || ledger.Available().IsNegative() {
		return workflow.ErrNegativeBalance
	}

	if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
		return err
	}
	if err := s.holdRepo.TransitionState(ctx, holdID, entity.HoldStateActive, target); err != nil {
		return err
	}

	s.logger.Info("Hold finalized",
		"hold_id", holdID,
		"request_id", hold.RequestID,
		"outcome", target.String(),
		"amount", hold.Amount.String(),
	)
	return nil
}

// Snapshot returns current balances, or the would-be provisioned row when absent
func (s *ledgerServiceImpl) Snapshot(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownCategory, category)
	}

	ledger, err := s.ledgerRepo.Get(ctx, employeeID, category)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return &entity.BudgetLedger{
			EmployeeID: employeeID,
			Category:   category,
			TotalLimit: s.limitFor(category),
			Committed:  decimal.Zero,
			Reserved:   decimal.Zero,
		}, nil
	}
	return ledger, nil
}

// getOrProvision loads the ledger row, creating it with the configured limit
// on first use
func (s *ledgerServiceImpl) getOrProvision(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error) {
	ledger, err := s.ledgerRepo.Get(ctx, employeeID, category)
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	if ledger != nil {
		return ledger, nil
	}

	now := time.Now()
	ledger = &entity.BudgetLedger{
		EmployeeID: employeeID,
		Category:   category,
		TotalLimit: s.limitFor(category),
		Committed:  decimal.Zero,
		Reserved:   decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.ledgerRepo.Create(ctx, ledger); err != nil {
		return nil, fmt.Errorf("provision ledger: %w", err)
	}

	s.logger.Info("Ledger row provisioned",
		"employee_id", employeeID,
		"category", category.String(),
		"total_limit", ledger.TotalLimit.String(),
	)
	return ledger, nil
}
