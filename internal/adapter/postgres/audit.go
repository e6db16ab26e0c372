package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/audit"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink persists audit entries as append-only rows.
type AuditSink struct {
	pool *pgxpool.Pool
}

// NewAuditSink creates an audit sink on the given connection pool.
func NewAuditSink(pool *pgxpool.Pool) *AuditSink {
	return &AuditSink{pool: pool}
}

// Record implements audit.Sink.
func (s *AuditSink) Record(ctx context.Context, e audit.Entry) error {
	var metaJSON []byte
	if e.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("marshal audit meta: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_entries (id, run_id, actor, action, detail, meta, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.RunID, e.Actor, e.Action, e.Detail, metaJSON, e.At)
	if err != nil {
		return fmt.Errorf("record audit entry %s: %w", e.ID, err)
	}
	return nil
}
