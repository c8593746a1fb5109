package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appworkflow "github.com/garyjia/benefit-approval/internal/application/workflow"
	"github.com/garyjia/benefit-approval/internal/domain/entity"
	domainwf "github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine appworkflow.Engine
	health HealthChecker
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine appworkflow.Engine, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		engine: engine,
		health: health,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitRequestBody is the payload for POST /api/requests
type SubmitRequestBody struct {
	Category    string   `json:"category" binding:"required"`
	RequesterID string   `json:"requester_id" binding:"required"`
	Amount      string   `json:"amount" binding:"required"`
	Payload     string   `json:"payload"`
	Attachments []string `json:"attachments"`
}

// ActorBody carries the acting user for stage decisions
type ActorBody struct {
	ActorID string `json:"actor_id" binding:"required"`
	Note    string `json:"note"`
}

// RevisionBody is the payload for POST /api/requests/:id/revision
type RevisionBody struct {
	ActorID             string `json:"actor_id" binding:"required"`
	Note                string `json:"note" binding:"required"`
	AttachmentsRequired bool   `json:"attachments_required"`
}

// ResubmitBody is the payload for POST /api/requests/:id/resubmit
type ResubmitBody struct {
	RequesterID string   `json:"requester_id" binding:"required"`
	Attachments []string `json:"attachments"`
}

// CancelBody is the payload for POST /api/requests/:id/cancel
type CancelBody struct {
	RequesterID string `json:"requester_id" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if h.health != nil && !h.health.Ready() {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data: HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid submit payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "amount is not a decimal"})
		return
	}

	req, err := h.engine.Submit(c.Request.Context(), appworkflow.SubmitInput{
		Category:    domainwf.Category(body.Category),
		RequesterID: body.RequesterID,
		Amount:      amount,
		Payload:     body.Payload,
		Attachments: body.Attachments,
	})
	if err != nil {
		// The draft survives an insufficient-budget refusal, so return it
		// alongside the error.
		if errors.Is(err, domainwf.ErrInsufficientBudget) && req != nil {
			c.JSON(http.StatusUnprocessableEntity, Response{
				Success: false,
				Data:    req,
				Error:   err.Error(),
			})
			return
		}
		h.respondError(c, err, "Failed to submit request")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	limit, ok := h.intQueryParam(c, "limit")
	if !ok {
		return
	}
	offset, ok := h.intQueryParam(c, "offset")
	if !ok {
		return
	}

	requests, err := h.engine.ListRequests(c.Request.Context(), c.Query("requester_id"), limit, offset)
	if err != nil {
		h.respondError(c, err, "Failed to list requests")
		return
	}
	if requests == nil {
		requests = []*entity.Request{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// intQueryParam parses an optional integer query parameter, responding with
// 400 when the value is not an integer
func (h *Handlers) intQueryParam(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: name + " must be an integer"})
		return 0, false
	}
	return value, true
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.engine.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get request")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.engine.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get request history")
		return
	}
	if history == nil {
		history = []*entity.StageHistoryEntry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ApproveRequest handles POST /api/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.engine.Approve(c.Request.Context(), c.Param("id"), body.ActorID); err != nil {
		h.respondError(c, err, "Failed to approve request")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.engine.Reject(c.Request.Context(), c.Param("id"), body.ActorID, body.Note); err != nil {
		h.respondError(c, err, "Failed to reject request")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// RequestRevision handles POST /api/requests/:id/revision
func (h *Handlers) RequestRevision(c *gin.Context) {
	var body RevisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.engine.RequestRevision(c.Request.Context(), c.Param("id"), body.ActorID, body.Note, body.AttachmentsRequired)
	if err != nil {
		h.respondError(c, err, "Failed to request revision")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ResubmitRequest handles POST /api/requests/:id/resubmit
func (h *Handlers) ResubmitRequest(c *gin.Context) {
	var body ResubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.engine.Resubmit(c.Request.Context(), c.Param("id"), body.RequesterID, body.Attachments); err != nil {
		h.respondError(c, err, "Failed to resubmit request")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.engine.Cancel(c.Request.Context(), c.Param("id"), body.RequesterID); err != nil {
		h.respondError(c, err, "Failed to cancel request")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetLedgerSnapshot handles GET /api/ledgers/:employee_id/:category
func (h *Handlers) GetLedgerSnapshot(c *gin.Context) {
	category := domainwf.Category(c.Param("category"))
	if !category.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown category"})
		return
	}

	snapshot, err := h.engine.GetLedgerSnapshot(c.Request.Context(), c.Param("employee_id"), category)
	if err != nil {
		h.respondError(c, err, "Failed to get ledger snapshot")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: snapshot})
}

// respondError maps workflow errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error, logMsg string) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domainwf.ErrUnknownCategory),
		errors.Is(err, domainwf.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, domainwf.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainwf.ErrNotAuthorizedForStage),
		errors.Is(err, domainwf.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, domainwf.ErrInsufficientBudget),
		errors.Is(err, domainwf.ErrRevisionIncomplete):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domainwf.ErrStaleState),
		errors.Is(err, domainwf.ErrContention),
		errors.Is(err, domainwf.ErrNotCancellable),
		errors.Is(err, domainwf.ErrHoldConflict),
		errors.Is(err, domainwf.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
