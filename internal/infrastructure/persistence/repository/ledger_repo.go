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

// LedgerRepository implements port.LedgerRepository
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a ledger row by key, nil when absent
func (r *LedgerRepository) Get(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error) {
	query := `
		SELECT employee_id, category, total_limit, committed, reserved, version,
			created_at, updated_at
		FROM budget_ledgers
		WHERE employee_id = ? AND category = ?
	`

	var (
		ledger     entity.BudgetLedger
		cat        string
		totalLimit string
		committed  string
		reserved   string
	)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, employeeID, category.String()).Scan(
		&ledger.EmployeeID,
		&cat,
		&totalLimit,
		&committed,
		&reserved,
		&ledger.Version,
		&ledger.CreatedAt,
		&ledger.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ledger",
			zap.String("employee_id", employeeID),
			zap.String("category", category.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	ledger.Category = workflow.Category(cat)
	if ledger.TotalLimit, err = decimal.NewFromString(totalLimit); err != nil {
		return nil, fmt.Errorf("parse total_limit %q: %w", totalLimit, err)
	}
	if ledger.Committed, err = decimal.NewFromString(committed); err != nil {
		return nil, fmt.Errorf("parse committed %q: %w", committed, err)
	}
	if ledger.Reserved, err = decimal.NewFromString(reserved); err != nil {
		return nil, fmt.Errorf("parse reserved %q: %w", reserved, err)
	}

	return &ledger, nil
}

// Create inserts a new ledger row at version 1
func (r *LedgerRepository) Create(ctx context.Context, ledger *entity.BudgetLedger) error {
	query := `
		INSERT INTO budget_ledgers (
			employee_id, category, total_limit, committed, reserved, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		ledger.EmployeeID,
		ledger.Category.String(),
		ledger.TotalLimit.String(),
		ledger.Committed.String(),
		ledger.Reserved.String(),
		1,
		ledger.CreatedAt,
		ledger.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger", zap.Error(err))
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	ledger.Version = 1
	return nil
}

// Update writes the balances with a compare-and-swap on version
func (r *LedgerRepository) Update(ctx context.Context, ledger *entity.BudgetLedger) error {
	query := `
		UPDATE budget_ledgers SET
			total_limit = ?, committed = ?, reserved = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE employee_id = ? AND category = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		ledger.TotalLimit.String(),
		ledger.Committed.String(),
		ledger.Reserved.String(),
		ledger.EmployeeID,
		ledger.Category.String(),
		ledger.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update ledger",
			zap.String("employee_id", ledger.EmployeeID),
			zap.String("category", ledger.Category.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: ledger (%s, %s) at version %d",
			workflow.ErrVersionConflict, ledger.EmployeeID, ledger.Category, ledger.Version)
	}

	ledger.Version++
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *LedgerRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.LedgerRepository = (*LedgerRepository)(nil)
