package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, category, requester_id, amount, current_state, stage_sequence,
	attachments, payload, revision, ledger_hold_id, version,
	created_at, updated_at
`

// Create inserts a new request at version 1
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	stageSeq, attachments, revision, err := encodeRequestFields(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (
			id, category, requester_id, amount, current_state, stage_sequence,
			attachments, payload, revision, ledger_hold_id, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		req.ID,
		req.Category.String(),
		req.RequesterID,
		req.Amount.String(),
		req.CurrentState.String(),
		stageSeq,
		attachments,
		req.Payload,
		revision,
		req.LedgerHoldID,
		1,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Version = 1
	return nil
}

// GetByID retrieves a request by ID, nil when absent
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`

	req, err := r.scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// Update writes the request with a compare-and-swap on version
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	stageSeq, attachments, revision, err := encodeRequestFields(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE requests SET
			current_state = ?, stage_sequence = ?, attachments = ?,
			revision = ?, ledger_hold_id = ?, version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.CurrentState.String(),
		stageSeq,
		attachments,
		revision,
		req.LedgerHoldID,
		req.UpdatedAt,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s at version %d", workflow.ErrVersionConflict, req.ID, req.Version)
	}

	req.Version++
	return nil
}

// List retrieves requests with pagination, newest first
func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryRequests(ctx, query, limit, offset)
}

// ListByRequester retrieves one requester's requests with pagination
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE requester_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryRequests(ctx, query, requesterID, limit, offset)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*entity.Request, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (*entity.Request, error) {
	var (
		req          entity.Request
		category     string
		amount       string
		currentState string
		stageSeq     string
		attachments  string
		revision     sql.NullString
		holdID       sql.NullString
	)

	err := row.Scan(
		&req.ID,
		&category,
		&req.RequesterID,
		&amount,
		&currentState,
		&stageSeq,
		&attachments,
		&req.Payload,
		&revision,
		&holdID,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Category = workflow.Category(category)
	req.CurrentState = workflow.State(currentState)

	req.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if err := json.Unmarshal([]byte(stageSeq), &req.StageSequence); err != nil {
		return nil, fmt.Errorf("decode stage sequence: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &req.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if revision.Valid && revision.String != "" {
		var rev entity.RevisionInfo
		if err := json.Unmarshal([]byte(revision.String), &rev); err != nil {
			return nil, fmt.Errorf("decode revision: %w", err)
		}
		req.Revision = &rev
	}
	if holdID.Valid {
		req.LedgerHoldID = &holdID.String
	}

	return &req, nil
}

func encodeRequestFields(req *entity.Request) (stageSeq, attachments string, revision interface{}, err error) {
	seq, err := json.Marshal(req.StageSequence)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode stage sequence: %w", err)
	}

	atts := req.Attachments
	if atts == nil {
		atts = []string{}
	}
	att, err := json.Marshal(atts)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode attachments: %w", err)
	}

	if req.Revision == nil {
		return string(seq), string(att), nil, nil
	}
	rev, err := json.Marshal(req.Revision)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode revision: %w", err)
	}
	return string(seq), string(att), string(rev), nil
}

// getExecutor returns appropriate executor based on context
func (r *RequestRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
