package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/benefit-approval/internal/application/dispatcher"
	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/application/service"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	"github.com/garyjia/benefit-approval/internal/domain/event"
	domainwf "github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// defaultMaxRetries bounds the optimistic retry loop per operation
const defaultMaxRetries = 3

// defaultListLimit is the page size when a caller does not supply one
const defaultListLimit = 50

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	ledger      service.LedgerService
	definitions *domainwf.DefinitionTable
	roles       port.RoleProvider
	attachments port.AttachmentStore
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	maxRetries  int
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting transition events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithAttachmentStore sets the attachment URI validator
func WithAttachmentStore(store port.AttachmentStore) EngineOption {
	return func(e *engineImpl) {
		e.attachments = store
	}
}

// WithMaxRetries sets the bounded retry count for optimistic conflicts
func WithMaxRetries(n int) EngineOption {
	return func(e *engineImpl) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new approval workflow engine
func NewEngine(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	ledger service.LedgerService,
	definitions *domainwf.DefinitionTable,
	roles port.RoleProvider,
	txManager port.TransactionManager,
	logger Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		ledger:      ledger,
		definitions: definitions,
		roles:       roles,
		txManager:   txManager,
		logger:      logger,
		maxRetries:  defaultMaxRetries,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit creates a request, reserves budget, and moves it to the first stage
func (e *engineImpl) Submit(ctx context.Context, in SubmitInput) (*entity.Request, error) {
	if in.Amount.IsNegative() {
		return nil, domainwf.ErrInvalidAmount
	}
	if in.RequesterID == "" {
		return nil, fmt.Errorf("requester id is required")
	}

	// Unknown category fails before any ledger interaction
	sequence, err := e.definitions.Resolve(in.Category, in.Amount)
	if err != nil {
		return nil, err
	}

	if e.attachments != nil && len(in.Attachments) > 0 {
		if err := e.attachments.Validate(ctx, in.Attachments); err != nil {
			return nil, fmt.Errorf("invalid attachments: %w", err)
		}
	}

	var (
		req          *entity.Request
		insufficient error
		evts         []*event.Event
	)

	err = e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		insufficient = nil
		evts = evts[:0]

		now := e.now()
		req = &entity.Request{
			ID:            uuid.NewString(),
			Category:      in.Category,
			RequesterID:   in.RequesterID,
			Amount:        in.Amount,
			CurrentState:  domainwf.StateDraft,
			StageSequence: sequence,
			Attachments:   in.Attachments,
			Payload:       in.Payload,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		hold, err := e.ledger.Reserve(txCtx, in.RequesterID, in.Category, in.Amount, req.ID)
		if errors.Is(err, domainwf.ErrInsufficientBudget) {
			// Keep the draft so the requester can see and cancel it; the
			// refusal itself is a routine business outcome.
			insufficient = err
			return nil
		}
		if err != nil {
			return err
		}
		req.LedgerHoldID = &hold.ID

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerSubmit); err != nil {
			return err
		}
		req.CurrentState = machine.State()
		req.UpdatedAt = e.now()

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, "", in.RequesterID, domainwf.TriggerSubmit, "", prev); err != nil {
			return err
		}

		evts = append(evts,
			event.NewEvent(event.TypeRequestSubmitted, req.ID, map[string]interface{}{
				event.KeyActorID: in.RequesterID,
				"category":       in.Category.String(),
				"amount":         in.Amount.String(),
			}),
			e.stateChangedEvent(req, prev, in.RequesterID, domainwf.TriggerSubmit, ""),
		)
		return nil
	})
	if err != nil {
		e.logger.Error("Submit failed", "error", err, "requester_id", in.RequesterID, "category", in.Category.String())
		return nil, err
	}

	if insufficient != nil {
		e.logger.Info("Submit refused, request kept in draft",
			"request_id", req.ID,
			"requester_id", in.RequesterID,
			"amount", in.Amount.String(),
		)
		return req, insufficient
	}

	e.publish(ctx, evts)
	e.logger.Info("Request submitted",
		"request_id", req.ID,
		"requester_id", in.RequesterID,
		"category", in.Category.String(),
		"state", req.CurrentState.String(),
	)
	return req, nil
}

// Approve records an approval at the request's current stage
func (e *engineImpl) Approve(ctx context.Context, requestID, actorID string) error {
	var evts []*event.Event
	var lastState domainwf.State

	err := e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		evts = evts[:0]

		req, err := e.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		// A lost race means some other decision landed first
		if attempt > 0 && req.CurrentState != lastState {
			return fmt.Errorf("%w: request %s moved to %s", domainwf.ErrStaleState, req.ID, req.CurrentState)
		}
		lastState = req.CurrentState

		stage, err := e.authorizeStageActor(txCtx, req, actorID)
		if err != nil {
			return err
		}

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerApprove); err != nil {
			return err
		}
		req.CurrentState = machine.State()
		req.UpdatedAt = e.now()

		if req.CurrentState == domainwf.StateCompleted {
			if req.LedgerHoldID == nil {
				return fmt.Errorf("request %s has no ledger hold to commit", req.ID)
			}
			if err := e.ledger.Commit(txCtx, *req.LedgerHoldID); err != nil {
				return err
			}
			req.LedgerHoldID = nil
		}

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, stage, actorID, domainwf.TriggerApprove, "", prev); err != nil {
			return err
		}

		evts = append(evts, e.stateChangedEvent(req, prev, actorID, domainwf.TriggerApprove, ""))
		if req.CurrentState == domainwf.StateCompleted {
			evts = append(evts, event.NewEvent(event.TypeRequestCompleted, req.ID, map[string]interface{}{
				event.KeyActorID: actorID,
			}))
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Approve failed", "error", err, "request_id", requestID, "actor_id", actorID)
		return err
	}

	e.publish(ctx, evts)
	return nil
}

// Reject terminates the request at its current stage
func (e *engineImpl) Reject(ctx context.Context, requestID, actorID, reason string) error {
	var evts []*event.Event
	var lastState domainwf.State

	err := e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		evts = evts[:0]

		req, err := e.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if attempt > 0 && req.CurrentState != lastState {
			return fmt.Errorf("%w: request %s moved to %s", domainwf.ErrStaleState, req.ID, req.CurrentState)
		}
		lastState = req.CurrentState

		stage, err := e.authorizeStageActor(txCtx, req, actorID)
		if err != nil {
			return err
		}

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerReject); err != nil {
			return err
		}
		req.CurrentState = machine.State()
		req.UpdatedAt = e.now()

		if req.LedgerHoldID != nil {
			if err := e.ledger.Release(txCtx, *req.LedgerHoldID); err != nil {
				return err
			}
			req.LedgerHoldID = nil
		}

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, stage, actorID, domainwf.TriggerReject, reason, prev); err != nil {
			return err
		}

		evts = append(evts,
			e.stateChangedEvent(req, prev, actorID, domainwf.TriggerReject, reason),
			event.NewEvent(event.TypeRequestRejected, req.ID, map[string]interface{}{
				event.KeyActorID: actorID,
				event.KeyStage:   stage.String(),
				event.KeyNote:    reason,
			}),
		)
		return nil
	})
	if err != nil {
		e.logger.Error("Reject failed", "error", err, "request_id", requestID, "actor_id", actorID)
		return err
	}

	e.publish(ctx, evts)
	return nil
}

// RequestRevision sends the request back to its requester for more documents
func (e *engineImpl) RequestRevision(ctx context.Context, requestID, actorID, note string, attachmentsRequired bool) error {
	var evts []*event.Event
	var lastState domainwf.State

	err := e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		evts = evts[:0]

		req, err := e.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if attempt > 0 && req.CurrentState != lastState {
			return fmt.Errorf("%w: request %s moved to %s", domainwf.ErrStaleState, req.ID, req.CurrentState)
		}
		lastState = req.CurrentState

		stage, err := e.authorizeStageActor(txCtx, req, actorID)
		if err != nil {
			return err
		}

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerRequestRevision); err != nil {
			return err
		}
		req.CurrentState = machine.State()
		req.Revision = &entity.RevisionInfo{
			RequestedBy:         actorID,
			Stage:               stage,
			Note:                note,
			AttachmentsRequired: attachmentsRequired,
			RequestedAt:         e.now(),
		}
		req.UpdatedAt = e.now()

		// The hold stays active: budget remains reserved while the requester
		// gathers documents.

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, stage, actorID, domainwf.TriggerRequestRevision, note, prev); err != nil {
			return err
		}

		evts = append(evts,
			e.stateChangedEvent(req, prev, actorID, domainwf.TriggerRequestRevision, note),
			event.NewEvent(event.TypeRevisionRequested, req.ID, map[string]interface{}{
				event.KeyActorID: actorID,
				event.KeyStage:   stage.String(),
				event.KeyNote:    note,
			}),
		)
		return nil
	})
	if err != nil {
		e.logger.Error("RequestRevision failed", "error", err, "request_id", requestID, "actor_id", actorID)
		return err
	}

	e.publish(ctx, evts)
	return nil
}

// Resubmit returns a revision-requested request to the stage that sent it back
func (e *engineImpl) Resubmit(ctx context.Context, requestID, requesterID string, attachments []string) error {
	var evts []*event.Event

	err := e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		evts = evts[:0]

		req, err := e.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}

		stage, ok := req.CurrentState.RevisionStage()
		if !ok {
			return fmt.Errorf("%w: request %s is %s, not awaiting revision", domainwf.ErrStaleState, req.ID, req.CurrentState)
		}
		if req.RequesterID != requesterID {
			return fmt.Errorf("%w: request %s belongs to %s", domainwf.ErrNotOwner, req.ID, req.RequesterID)
		}
		if req.Revision != nil && req.Revision.AttachmentsRequired && len(attachments) == 0 {
			return fmt.Errorf("%w: stage %s asked for documents", domainwf.ErrRevisionIncomplete, stage)
		}
		if e.attachments != nil && len(attachments) > 0 {
			if err := e.attachments.Validate(txCtx, attachments); err != nil {
				return fmt.Errorf("invalid attachments: %w", err)
			}
		}

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerResubmit); err != nil {
			return err
		}
		req.CurrentState = machine.State()
		req.Attachments = append(req.Attachments, attachments...)
		req.Revision = nil
		req.UpdatedAt = e.now()

		// No ledger interaction: the hold never stopped being active

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, stage, requesterID, domainwf.TriggerResubmit, "", prev); err != nil {
			return err
		}

		evts = append(evts,
			e.stateChangedEvent(req, prev, requesterID, domainwf.TriggerResubmit, ""),
			event.NewEvent(event.TypeRequestResubmitted, req.ID, map[string]interface{}{
				event.KeyActorID: requesterID,
				event.KeyStage:   stage.String(),
			}),
		)
		return nil
	})
	if err != nil {
		e.logger.Error("Resubmit failed", "error", err, "request_id", requestID, "requester_id", requesterID)
		return err
	}

	e.publish(ctx, evts)
	return nil
}

// Cancel withdraws a request before its final stage
func (e *engineImpl) Cancel(ctx context.Context, requestID, requesterID string) error {
	var evts []*event.Event

	err := e.runWithRetry(ctx, func(txCtx context.Context, attempt int) error {
		evts = evts[:0]

		req, err := e.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}

		if req.RequesterID != requesterID {
			return fmt.Errorf("%w: request %s belongs to %s", domainwf.ErrNotOwner, req.ID, req.RequesterID)
		}
		if !req.IsCancellable() {
			return fmt.Errorf("%w: request %s is %s", domainwf.ErrNotCancellable, req.ID, req.CurrentState)
		}

		prev := req.CurrentState
		machine := BuildRequestStateMachine(req.StageSequence, prev)
		if err := machine.Fire(txCtx, domainwf.TriggerCancel); err != nil {
			return fmt.Errorf("%w: %v", domainwf.ErrNotCancellable, err)
		}
		req.CurrentState = machine.State()
		req.UpdatedAt = e.now()

		if req.LedgerHoldID != nil {
			if err := e.ledger.Release(txCtx, *req.LedgerHoldID); err != nil {
				return err
			}
			req.LedgerHoldID = nil
		}

		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := e.appendHistory(txCtx, req, "", requesterID, domainwf.TriggerCancel, "", prev); err != nil {
			return err
		}

		evts = append(evts,
			e.stateChangedEvent(req, prev, requesterID, domainwf.TriggerCancel, ""),
			event.NewEvent(event.TypeRequestCancelled, req.ID, map[string]interface{}{
				event.KeyActorID: requesterID,
			}),
		)
		return nil
	})
	if err != nil {
		e.logger.Error("Cancel failed", "error", err, "request_id", requestID, "requester_id", requesterID)
		return err
	}

	e.publish(ctx, evts)
	return nil
}

// GetRequest returns a request by ID
func (e *engineImpl) GetRequest(ctx context.Context, requestID string) (*entity.Request, error) {
	return e.loadRequest(ctx, requestID)
}

// GetHistory returns the request's append-only stage history
func (e *engineImpl) GetHistory(ctx context.Context, requestID string) ([]*entity.StageHistoryEntry, error) {
	if _, err := e.loadRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return e.historyRepo.GetByRequestID(ctx, requestID)
}

// GetLedgerSnapshot returns current balances for an employee and category
func (e *engineImpl) GetLedgerSnapshot(ctx context.Context, employeeID string, category domainwf.Category) (*entity.BudgetLedger, error) {
	return e.ledger.Snapshot(ctx, employeeID, category)
}

// ListRequests returns requests newest first, optionally filtered to one requester
func (e *engineImpl) ListRequests(ctx context.Context, requesterID string, limit, offset int) ([]*entity.Request, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	if requesterID != "" {
		return e.requestRepo.ListByRequester(ctx, requesterID, limit, offset)
	}
	return e.requestRepo.List(ctx, limit, offset)
}

// runWithRetry executes op inside a transaction, retrying from a fresh read on
// optimistic version conflicts. Exhaustion surfaces as ErrContention.
func (e *engineImpl) runWithRetry(ctx context.Context, op func(txCtx context.Context, attempt int) error) error {
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return op(txCtx, attempt)
		})
		if errors.Is(err, domainwf.ErrVersionConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %d attempts", domainwf.ErrContention, e.maxRetries+1)
}

// loadRequest fetches a request, mapping absence to ErrRequestNotFound
func (e *engineImpl) loadRequest(ctx context.Context, requestID string) (*entity.Request, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, requestID)
	}
	return req, nil
}

// authorizeStageActor checks that the request is pending and the actor holds
// the role the current stage requires
func (e *engineImpl) authorizeStageActor(ctx context.Context, req *entity.Request, actorID string) (domainwf.Stage, error) {
	stage, ok := req.CurrentState.PendingStage()
	if !ok {
		return "", fmt.Errorf("%w: request %s is %s", domainwf.ErrStaleState, req.ID, req.CurrentState)
	}

	roles, err := e.roles.RolesOf(ctx, actorID)
	if err != nil {
		return "", fmt.Errorf("resolve roles for %s: %w", actorID, err)
	}
	if !port.HasRole(roles, stage.RequiredRole()) {
		return "", fmt.Errorf("%w: actor %s lacks role %s for stage %s",
			domainwf.ErrNotAuthorizedForStage, actorID, stage.RequiredRole(), stage)
	}
	return stage, nil
}

// appendHistory records one transition in the append-only audit trail
func (e *engineImpl) appendHistory(ctx context.Context, req *entity.Request, stage domainwf.Stage, actorID string, action domainwf.Trigger, note string, prev domainwf.State) error {
	entry := &entity.StageHistoryEntry{
		RequestID:     req.ID,
		Stage:         stage,
		ActorID:       actorID,
		Action:        action,
		Note:          note,
		PreviousState: prev,
		NewState:      req.CurrentState,
		Timestamp:     e.now(),
	}
	if err := e.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// stateChangedEvent builds the transition event emitted after commit
func (e *engineImpl) stateChangedEvent(req *entity.Request, prev domainwf.State, actorID string, trigger domainwf.Trigger, note string) *event.Event {
	payload := map[string]interface{}{
		event.KeyFromState: prev.String(),
		event.KeyToState:   req.CurrentState.String(),
		event.KeyActorID:   actorID,
		event.KeyTrigger:   trigger.String(),
	}
	if note != "" {
		payload[event.KeyNote] = note
	}
	return event.NewEvent(event.TypeStateChanged, req.ID, payload)
}

// publish delivers events synchronously after the transition is durable.
// Delivery is at-least-once; handler failures are logged, never rolled back.
func (e *engineImpl) publish(ctx context.Context, evts []*event.Event) {
	if e.dispatcher == nil {
		return
	}
	for _, evt := range evts {
		if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
			e.logger.Error("Event dispatch failed",
				"event_type", evt.Type.String(),
				"event_id", evt.ID,
				"request_id", evt.RequestID,
				"error", err,
			)
		}
	}
}
