package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// nopLogger satisfies Logger without output
type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// memLedgerRepo is an in-memory LedgerRepository with version checks
type memLedgerRepo struct {
	rows map[string]*entity.BudgetLedger
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{rows: make(map[string]*entity.BudgetLedger)}
}

func ledgerKey(employeeID string, category workflow.Category) string {
	return employeeID + "/" + category.String()
}

func (r *memLedgerRepo) Get(ctx context.Context, employeeID string, category workflow.Category) (*entity.BudgetLedger, error) {
	row, ok := r.rows[ledgerKey(employeeID, category)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memLedgerRepo) Create(ctx context.Context, ledger *entity.BudgetLedger) error {
	key := ledgerKey(ledger.EmployeeID, ledger.Category)
	if _, exists := r.rows[key]; exists {
		return fmt.Errorf("ledger row already exists")
	}
	ledger.Version = 1
	cp := *ledger
	r.rows[key] = &cp
	return nil
}

func (r *memLedgerRepo) Update(ctx context.Context, ledger *entity.BudgetLedger) error {
	key := ledgerKey(ledger.EmployeeID, ledger.Category)
	row, ok := r.rows[key]
	if !ok || row.Version != ledger.Version {
		return workflow.ErrVersionConflict
	}
	ledger.Version++
	cp := *ledger
	r.rows[key] = &cp
	return nil
}

// memHoldRepo is an in-memory HoldRepository with state-guarded transitions
type memHoldRepo struct {
	holds map[string]*entity.LedgerHold
}

func newMemHoldRepo() *memHoldRepo {
	return &memHoldRepo{holds: make(map[string]*entity.LedgerHold)}
}

func (r *memHoldRepo) Create(ctx context.Context, hold *entity.LedgerHold) error {
	cp := *hold
	r.holds[hold.ID] = &cp
	return nil
}

func (r *memHoldRepo) GetByID(ctx context.Context, id string) (*entity.LedgerHold, error) {
	hold, ok := r.holds[id]
	if !ok {
		return nil, nil
	}
	cp := *hold
	return &cp, nil
}

func (r *memHoldRepo) GetActiveByRequestID(ctx context.Context, requestID string) (*entity.LedgerHold, error) {
	for _, hold := range r.holds {
		if hold.RequestID == requestID && hold.State == entity.HoldStateActive {
			cp := *hold
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memHoldRepo) TransitionState(ctx context.Context, id string, from, to entity.HoldState) error {
	hold, ok := r.holds[id]
	if !ok || hold.State != from {
		return workflow.ErrVersionConflict
	}
	hold.State = to
	return nil
}

func newTestLedgerService() (LedgerService, *memLedgerRepo, *memHoldRepo) {
	ledgerRepo := newMemLedgerRepo()
	holdRepo := newMemHoldRepo()
	svc := NewLedgerService(ledgerRepo, holdRepo, func(category workflow.Category) decimal.Decimal {
		return decimal.NewFromInt(1000)
	}, nopLogger{})
	return svc, ledgerRepo, holdRepo
}

func TestLedgerService_ReserveProvisionsRow(t *testing.T) {
	svc, ledgerRepo, _ := newTestLedgerService()
	ctx := context.Background()

	hold, err := svc.Reserve(ctx, "emp-1", workflow.CategoryWelfareMedical, decimal.NewFromInt(400), "req-1")
	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, entity.HoldStateActive, hold.State)

	ledger, err := ledgerRepo.Get(ctx, "emp-1", workflow.CategoryWelfareMedical)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.True(t, ledger.TotalLimit.Equal(decimal.NewFromInt(1000)), "provisioned with configured limit")
	assert.True(t, ledger.Reserved.Equal(decimal.NewFromInt(400)))
	assert.True(t, ledger.Available().Equal(decimal.NewFromInt(600)))
}

func TestLedgerService_ReserveInsufficientBudget(t *testing.T) {
	svc, _, _ := newTestLedgerService()
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "emp-1", workflow.CategoryWelfareMedical, decimal.NewFromInt(1001), "req-1")
	assert.ErrorIs(t, err, workflow.ErrInsufficientBudget)

	// Exactly the available amount is allowed
	hold, err := svc.Reserve(ctx, "emp-1", workflow.CategoryWelfareMedical, decimal.NewFromInt(1000), "req-2")
	require.NoError(t, err)
	assert.NotNil(t, hold)
}

func TestLedgerService_ReserveRejectsSecondActiveHold(t *testing.T) {
	svc, _, _ := newTestLedgerService()
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "emp-1", workflow.CategoryAdvance, decimal.NewFromInt(100), "req-1")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "emp-1", workflow.CategoryAdvance, decimal.NewFromInt(100), "req-1")
	assert.Error(t, err, "a request may own at most one active hold")
}

func TestLedgerService_CommitMovesReservedToCommitted(t *testing.T) {
	svc, ledgerRepo, _ := newTestLedgerService()
	ctx := context.Background()

	hold, err := svc.Reserve(ctx, "emp-1", workflow.CategoryWelfareFamily, decimal.NewFromInt(250), "req-1")
	require.NoError(t, err)

	require.NoError(t, svc.Commit(ctx, hold.ID))

	ledger, err := ledgerRepo.Get(ctx, "emp-1", workflow.CategoryWelfareFamily)
	require.NoError(t, err)
	assert.True(t, ledger.Reserved.IsZero())
	assert.True(t, ledger.Committed.Equal(decimal.NewFromInt(250)))
	assert.True(t, ledger.Available().Equal(decimal.NewFromInt(750)))
}

func TestLedgerService_ReleaseRestoresAvailable(t *testing.T) {
	svc, ledgerRepo, _ := newTestLedgerService()
	ctx := context.Background()

	hold, err := svc.Reserve(ctx, "emp-1", workflow.CategoryAdvance, decimal.NewFromInt(250), "req-1")
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, hold.ID))

	ledger, err := ledgerRepo.Get(ctx, "emp-1", workflow.CategoryAdvance)
	require.NoError(t, err)
	assert.True(t, ledger.Reserved.IsZero())
	assert.True(t, ledger.Committed.IsZero())
	assert.True(t, ledger.Available().Equal(decimal.NewFromInt(1000)), "reserve then release is a no-op on balances")
}

func TestLedgerService_FinalizeIdempotence(t *testing.T) {
	svc, ledgerRepo, _ := newTestLedgerService()
	ctx := context.Background()

	hold, err := svc.Reserve(ctx, "emp-1", workflow.CategoryWelfareMedical, decimal.NewFromInt(100), "req-1")
	require.NoError(t, err)

	require.NoError(t, svc.Commit(ctx, hold.ID))
	// Same outcome again is a no-op
	require.NoError(t, svc.Commit(ctx, hold.ID))

	ledger, err := ledgerRepo.Get(ctx, "emp-1", workflow.CategoryWelfareMedical)
	require.NoError(t, err)
	assert.True(t, ledger.Committed.Equal(decimal.NewFromInt(100)), "double commit must not double-debit")

	// Conflicting outcome fails
	err = svc.Release(ctx, hold.ID)
	assert.ErrorIs(t, err, workflow.ErrHoldConflict)
}

func TestLedgerService_ReserveNegativeAmount(t *testing.T) {
	svc, _, _ := newTestLedgerService()

	_, err := svc.Reserve(context.Background(), "emp-1", workflow.CategoryAdvance, decimal.NewFromInt(-5), "req-1")
	assert.ErrorIs(t, err, workflow.ErrInvalidAmount)
}

func TestLedgerService_SnapshotWithoutRow(t *testing.T) {
	svc, _, _ := newTestLedgerService()

	snap, err := svc.Snapshot(context.Background(), "emp-unknown", workflow.CategoryWelfareMedical)
	require.NoError(t, err)
	assert.True(t, snap.TotalLimit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, snap.Committed.IsZero())
	assert.True(t, snap.Reserved.IsZero())
	assert.True(t, snap.Available().Equal(decimal.NewFromInt(1000)))
}

func TestLedgerService_SnapshotUnknownCategory(t *testing.T) {
	svc, _, _ := newTestLedgerService()

	_, err := svc.Snapshot(context.Background(), "emp-1", workflow.Category("BAD"))
	assert.ErrorIs(t, err, workflow.ErrUnknownCategory)
}
