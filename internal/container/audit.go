package container

import (
	"context"

	"github.com/garyjia/benefit-approval/internal/application/dispatcher"
	"github.com/garyjia/benefit-approval/internal/domain/event"
	"go.uber.org/zap"
)

// auditedTypes lists every workflow event the audit trail records.
var auditedTypes = []event.Type{
	event.TypeRequestSubmitted,
	event.TypeStateChanged,
	event.TypeRequestCompleted,
	event.TypeRequestRejected,
	event.TypeRevisionRequested,
	event.TypeRequestResubmitted,
	event.TypeRequestCancelled,
}

// registerAuditTrail subscribes a logging handler for every workflow event
// type so each transition leaves a structured record.
func registerAuditTrail(disp dispatcher.Dispatcher, logger *zap.Logger) {
	handler := func(ctx context.Context, evt *event.Event) error {
		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.String("request_id", evt.RequestID),
			zap.Time("timestamp", evt.Timestamp),
		}
		if evt.CorrelationID != "" {
			fields = append(fields, zap.String("correlation_id", evt.CorrelationID))
		}
		if from := evt.GetPayloadString(event.KeyFromState); from != "" {
			fields = append(fields, zap.String("from_state", from))
		}
		if to := evt.GetPayloadString(event.KeyToState); to != "" {
			fields = append(fields, zap.String("to_state", to))
		}
		if actor := evt.GetPayloadString(event.KeyActorID); actor != "" {
			fields = append(fields, zap.String("actor_id", actor))
		}
		if trigger := evt.GetPayloadString(event.KeyTrigger); trigger != "" {
			fields = append(fields, zap.String("trigger", trigger))
		}

		logger.Info("Workflow event", fields...)
		return nil
	}

	for _, t := range auditedTypes {
		disp.SubscribeNamed(t, "audit_trail", handler)
	}
}
