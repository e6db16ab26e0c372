// Package audit defines the audit trail port (interface).
package audit

import (
	"context"
	"errors"
	"time"
)

// Entry is one append-only audit record. Entries are immutable once
// recorded.
type Entry struct {
	ID     string            `json:"id"`
	RunID  string            `json:"run_id,omitempty"`
	Actor  string            `json:"actor"`
	Action string            `json:"action"`
	Detail string            `json:"detail,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
	At     time.Time         `json:"at"`
}

// Sink is the port interface for recording audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Fanout records each entry on every sink. All sinks are attempted;
// errors are joined so one failing sink does not hide the others.
type Fanout []Sink

// Record implements Sink.
func (f Fanout) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
