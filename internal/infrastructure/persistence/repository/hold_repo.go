package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// HoldRepository implements port.HoldRepository
type HoldRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHoldRepository creates a new hold repository
func NewHoldRepository(db *sql.DB, logger *zap.Logger) port.HoldRepository {
	return &HoldRepository{
		db:     db,
		logger: logger,
	}
}

const holdColumns = `id, request_id, employee_id, category, amount, state, created_at, updated_at`

// Create inserts a new hold
func (r *HoldRepository) Create(ctx context.Context, hold *entity.LedgerHold) error {
	query := `
		INSERT INTO ledger_holds (
			id, request_id, employee_id, category, amount, state,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		hold.ID,
		hold.RequestID,
		hold.EmployeeID,
		hold.Category.String(),
		hold.Amount.String(),
		hold.State.String(),
		hold.CreatedAt,
		hold.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create hold", zap.Error(err))
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

// GetByID retrieves a hold by ID, nil when absent
func (r *HoldRepository) GetByID(ctx context.Context, id string) (*entity.LedgerHold, error) {
	query := `SELECT ` + holdColumns + ` FROM ledger_holds WHERE id = ?`

	hold, err := r.scanHold(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get hold", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return hold, nil
}

// GetActiveByRequestID retrieves the request's active hold, nil when none
func (r *HoldRepository) GetActiveByRequestID(ctx context.Context, requestID string) (*entity.LedgerHold, error) {
	query := `SELECT ` + holdColumns + ` FROM ledger_holds WHERE request_id = ? AND state = ?`

	hold, err := r.scanHold(r.getExecutor(ctx).QueryRowContext(ctx, query, requestID, entity.HoldStateActive.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active hold", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active hold: %w", err)
	}
	return hold, nil
}

// TransitionState moves a hold between states, guarded on the expected
// current state
func (r *HoldRepository) TransitionState(ctx context.Context, id string, from, to entity.HoldState) error {
	query := `UPDATE ledger_holds SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, to.String(), id, from.String())
	if err != nil {
		r.logger.Error("Failed to transition hold", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to transition hold: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: hold %s not in state %s", workflow.ErrVersionConflict, id, from)
	}
	return nil
}

func (r *HoldRepository) scanHold(row rowScanner) (*entity.LedgerHold, error) {
	var (
		hold     entity.LedgerHold
		category string
		amount   string
		state    string
	)

	err := row.Scan(
		&hold.ID,
		&hold.RequestID,
		&hold.EmployeeID,
		&category,
		&amount,
		&state,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	hold.Category = workflow.Category(category)
	hold.State = entity.HoldState(state)
	if hold.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &hold, nil
}

// getExecutor returns appropriate executor based on context
func (r *HoldRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.HoldRepository = (*HoldRepository)(nil)
