package slack

import (
	"testing"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/notifier"
)

func TestFactoryRequiresWebhookURL(t *testing.T) {
	if _, err := notifier.New(providerName, map[string]string{}); err == nil {
		t.Fatal("expected error for missing webhook_url")
	}

	n, err := notifier.New(providerName, map[string]string{
		"webhook_url": "https://hooks.slack.com/services/T0/B0/x",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Name() != providerName {
		t.Fatalf("Name() = %q, want %q", n.Name(), providerName)
	}
}
