package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

const testSchema = `
	CREATE TABLE requests (
		id             TEXT PRIMARY KEY,
		category       TEXT NOT NULL,
		requester_id   TEXT NOT NULL,
		amount         TEXT NOT NULL,
		current_state  TEXT NOT NULL,
		stage_sequence TEXT NOT NULL,
		attachments    TEXT NOT NULL DEFAULT '[]',
		payload        TEXT NOT NULL DEFAULT '',
		revision       TEXT,
		ledger_hold_id TEXT,
		version        INTEGER NOT NULL DEFAULT 1,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	);
	CREATE TABLE stage_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id     TEXT NOT NULL,
		stage          TEXT NOT NULL DEFAULT '',
		actor_id       TEXT NOT NULL,
		action         TEXT NOT NULL,
		note           TEXT NOT NULL DEFAULT '',
		previous_state TEXT NOT NULL,
		new_state      TEXT NOT NULL,
		timestamp      DATETIME NOT NULL
	);
	CREATE TABLE budget_ledgers (
		employee_id TEXT NOT NULL,
		category    TEXT NOT NULL,
		total_limit TEXT NOT NULL,
		committed   TEXT NOT NULL DEFAULT '0',
		reserved    TEXT NOT NULL DEFAULT '0',
		version     INTEGER NOT NULL DEFAULT 1,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		PRIMARY KEY (employee_id, category)
	);
	CREATE TABLE ledger_holds (
		id          TEXT PRIMARY KEY,
		request_id  TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		category    TEXT NOT NULL,
		amount      TEXT NOT NULL,
		state       TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func newTestRequest() *entity.Request {
	now := time.Now().UTC().Truncate(time.Second)
	return &entity.Request{
		ID:           "req-1",
		Category:     workflow.CategoryWelfareMedical,
		RequesterID:  "emp-1",
		Amount:       decimal.NewFromInt(15000),
		CurrentState: workflow.StateDraft,
		StageSequence: []workflow.Stage{
			workflow.StageManager,
			workflow.StageSpecialApproval,
			workflow.StageHR,
			workflow.StageAccounting,
		},
		Attachments: []string{"file:///receipt.pdf"},
		Payload:     `{"purpose":"dental"}`,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	repo := NewRequestRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	req := newTestRequest()
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, int64(1), req.Version)

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.Category, got.Category)
	assert.True(t, got.Amount.Equal(req.Amount))
	assert.Equal(t, req.StageSequence, got.StageSequence)
	assert.Equal(t, req.Attachments, got.Attachments)
	assert.Equal(t, req.Payload, got.Payload)
	assert.Nil(t, got.Revision)
	assert.Nil(t, got.LedgerHoldID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRequestRepository_UpdateVersionCheck(t *testing.T) {
	repo := NewRequestRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	req := newTestRequest()
	require.NoError(t, repo.Create(ctx, req))

	req.CurrentState = workflow.PendingState(workflow.StageManager)
	holdID := "hold-1"
	req.LedgerHoldID = &holdID
	require.NoError(t, repo.Update(ctx, req))
	assert.Equal(t, int64(2), req.Version)

	// A writer holding the old version loses
	stale := newTestRequest()
	stale.Version = 1
	stale.CurrentState = workflow.RejectedState(workflow.StageManager)
	err := repo.Update(ctx, stale)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.PendingState(workflow.StageManager), got.CurrentState)
	require.NotNil(t, got.LedgerHoldID)
	assert.Equal(t, "hold-1", *got.LedgerHoldID)
}

func TestRequestRepository_RevisionRoundTrip(t *testing.T) {
	repo := NewRequestRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	req := newTestRequest()
	require.NoError(t, repo.Create(ctx, req))

	req.CurrentState = workflow.RevisionState(workflow.StageHR)
	req.Revision = &entity.RevisionInfo{
		RequestedBy:         "hr-1",
		Stage:               workflow.StageHR,
		Note:                "need receipts",
		AttachmentsRequired: true,
		RequestedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Update(ctx, req))

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got.Revision)
	assert.Equal(t, "hr-1", got.Revision.RequestedBy)
	assert.Equal(t, workflow.StageHR, got.Revision.Stage)
	assert.True(t, got.Revision.AttachmentsRequired)

	// Clearing the revision persists as NULL
	got.Revision = nil
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Nil(t, again.Revision)
}

func TestRequestRepository_ListByRequester(t *testing.T) {
	repo := NewRequestRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	first := newTestRequest()
	require.NoError(t, repo.Create(ctx, first))

	second := newTestRequest()
	second.ID = "req-2"
	second.RequesterID = "emp-2"
	require.NoError(t, repo.Create(ctx, second))

	mine, err := repo.ListByRequester(ctx, "emp-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "req-1", mine[0].ID)

	all, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLedgerRepository_VersionCheck(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	ledger := &entity.BudgetLedger{
		EmployeeID: "emp-1",
		Category:   workflow.CategoryWelfareMedical,
		TotalLimit: decimal.NewFromInt(50000),
		Committed:  decimal.Zero,
		Reserved:   decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Create(ctx, ledger))
	assert.Equal(t, int64(1), ledger.Version)

	ledger.Reserved = decimal.NewFromInt(100)
	require.NoError(t, repo.Update(ctx, ledger))
	assert.Equal(t, int64(2), ledger.Version)

	stale := *ledger
	stale.Version = 1
	err := repo.Update(ctx, &stale)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)

	got, err := repo.Get(ctx, "emp-1", workflow.CategoryWelfareMedical)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Reserved.Equal(decimal.NewFromInt(100)))

	absent, err := repo.Get(ctx, "emp-2", workflow.CategoryAdvance)
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestHoldRepository_StateGuardedTransition(t *testing.T) {
	repo := NewHoldRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	hold := &entity.LedgerHold{
		ID:         "hold-1",
		RequestID:  "req-1",
		EmployeeID: "emp-1",
		Category:   workflow.CategoryWelfareMedical,
		Amount:     decimal.NewFromInt(100),
		State:      entity.HoldStateActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Create(ctx, hold))

	active, err := repo.GetActiveByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "hold-1", active.ID)

	require.NoError(t, repo.TransitionState(ctx, "hold-1", entity.HoldStateActive, entity.HoldStateCommitted))

	// The guard refuses a second transition out of ACTIVE
	err = repo.TransitionState(ctx, "hold-1", entity.HoldStateActive, entity.HoldStateReleased)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)

	got, err := repo.GetByID(ctx, "hold-1")
	require.NoError(t, err)
	assert.Equal(t, entity.HoldStateCommitted, got.State)

	noneActive, err := repo.GetActiveByRequestID(ctx, "req-1")
	require.NoError(t, err)
	assert.Nil(t, noneActive)
}

func TestHistoryRepository_AppendAndGet(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	entries := []*entity.StageHistoryEntry{
		{
			RequestID:     "req-1",
			ActorID:       "emp-1",
			Action:        workflow.TriggerSubmit,
			PreviousState: workflow.StateDraft,
			NewState:      workflow.PendingState(workflow.StageManager),
			Timestamp:     time.Now().UTC().Truncate(time.Second),
		},
		{
			RequestID:     "req-1",
			Stage:         workflow.StageManager,
			ActorID:       "mgr-1",
			Action:        workflow.TriggerApprove,
			PreviousState: workflow.PendingState(workflow.StageManager),
			NewState:      workflow.PendingState(workflow.StageHR),
			Timestamp:     time.Now().UTC().Truncate(time.Second),
		},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
	}
	assert.NotZero(t, entries[0].ID)

	got, err := repo.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, workflow.TriggerSubmit, got[0].Action)
	assert.Equal(t, workflow.StageManager, got[1].Stage)
	assert.Equal(t, "mgr-1", got[1].ActorID)
}
