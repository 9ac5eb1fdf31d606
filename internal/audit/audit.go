// internal/audit/audit.go
package audit

import (
	"context"
	"time"

	"smartbuilding-workers/internal/common/logger"

	"github.com/google/uuid"
)

// Event kinds emitted by the pipeline.
const (
	KindSecurityRejection = "security_rejection"
	KindRetry             = "retry"
	KindProcessingFailed  = "processing_failed"
)

// Event is a structured security/audit record. Rejections, retries and
// terminal failures all flow through here; the end user never sees them.
type Event struct {
	ID        string                 `json:"id"`
	Kind      string                 `json:"kind"`
	Status    string                 `json:"status"`
	TenantID  string                 `json:"tenantId"`
	UserID    string                 `json:"userId"`
	Reason    string                 `json:"reason"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent fills in the id and timestamp.
func NewEvent(kind, status, tenantID, userID, reason string, metadata map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    status,
		TenantID:  tenantID,
		UserID:    userID,
		Reason:    reason,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// Sink receives audit events. Implementations must not fail the pipeline;
// delivery is best-effort.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// ZapSink writes audit events to the structured log.
type ZapSink struct {
	logger logger.Logger
}

func NewZapSink(log logger.Logger) *ZapSink {
	return &ZapSink{
		logger: log.With(map[string]interface{}{"component": "audit"}),
	}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	s.logger.Warn("audit event", map[string]interface{}{
		"eventId":  event.ID,
		"kind":     event.Kind,
		"status":   event.Status,
		"tenantId": event.TenantID,
		"userId":   event.UserID,
		"reason":   event.Reason,
		"metadata": event.Metadata,
	})
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}
