// Package service contains application services.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/notifier"
)

// NotificationService dispatches notifications to all registered notifiers.
type NotificationService struct {
	notifiers     []notifier.Notifier
	enabledEvents map[string]bool
}

// NewNotificationService creates a NotificationService with the given
// notifiers and list of enabled event sources (e.g. "run.passed",
// "run.failed"). If enabledEvents is nil or empty, all events are
// enabled.
func NewNotificationService(notifiers []notifier.Notifier, enabledEvents []string) *NotificationService {
	enabled := make(map[string]bool, len(enabledEvents))
	for _, e := range enabledEvents {
		enabled[e] = true
	}
	return &NotificationService{
		notifiers:     notifiers,
		enabledEvents: enabled,
	}
}

// Notify sends a notification to all registered notifiers.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.enabledEvents) > 0 && !s.enabledEvents[n.Source] {
		return
	}

	for _, provider := range s.notifiers {
		if err := provider.Send(ctx, n); err != nil {
			slog.Warn("notification send failed",
				"provider", provider.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		slog.Debug("notification sent", "provider", provider.Name(), "title", n.Title)
	}
}

// NotifyRunFinished builds and dispatches the notification for a
// terminal run. Register it on the orchestrator's completion hook.
func (s *NotificationService) NotifyRunFinished(ctx context.Context, r *run.Run) {
	if !r.Status.IsTerminal() {
		return
	}

	level := "info"
	switch r.Status {
	case run.StatusPassed:
		level = "success"
	case run.StatusFailed:
		level = "error"
	case run.StatusAborted:
		level = "warning"
	}

	msg := fmt.Sprintf("Run %s finished with status %s (domain %s)", r.ID, r.Status, r.Domain)
	if r.Reason != "" {
		msg += ": " + r.Reason
	}

	s.Notify(ctx, notifier.Notification{
		Title:   fmt.Sprintf("Run %s", r.Status),
		Message: msg,
		Level:   level,
		Source:  "run." + string(r.Status),
	})
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}
