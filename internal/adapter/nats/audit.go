package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/audit"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/messagequeue"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink publishes audit entries on the audit trail subject. The
// stream captures them, so external consumers can replay the full
// trail without touching the database.
type AuditSink struct {
	queue messagequeue.Queue
}

// NewAuditSink creates an audit sink backed by the message queue.
func NewAuditSink(queue messagequeue.Queue) *AuditSink {
	return &AuditSink{queue: queue}
}

// Record implements audit.Sink.
func (s *AuditSink) Record(ctx context.Context, e audit.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectAuditTrail, data); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}
	return nil
}
