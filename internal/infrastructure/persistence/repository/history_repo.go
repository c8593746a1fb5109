package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// HistoryRepository implements port.HistoryRepository over the append-only
// stage_history table
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new history entry
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StageHistoryEntry) error {
	query := `
		INSERT INTO stage_history (
			request_id, stage, actor_id, action, note,
			previous_state, new_state, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.RequestID,
		entry.Stage.String(),
		entry.ActorID,
		entry.Action.String(),
		entry.Note,
		entry.PreviousState.String(),
		entry.NewState.String(),
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append history entry", zap.Error(err))
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByRequestID retrieves all history entries for a request, oldest first
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.StageHistoryEntry, error) {
	query := `
		SELECT id, request_id, stage, actor_id, action, note,
			previous_state, new_state, timestamp
		FROM stage_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.StageHistoryEntry
	for rows.Next() {
		var (
			entry     entity.StageHistoryEntry
			stage     string
			action    string
			prevState string
			newState  string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&stage,
			&entry.ActorID,
			&action,
			&entry.Note,
			&prevState,
			&newState,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Stage = workflow.Stage(stage)
		entry.Action = workflow.Trigger(action)
		entry.PreviousState = workflow.State(prevState)
		entry.NewState = workflow.State(newState)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *HistoryRepository) getExecutor(ctx context.Context) executor {
	return getExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
