package slack

import (
	"fmt"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		url := config["webhook_url"]
		if url == "" {
			return nil, fmt.Errorf("slack: webhook_url is required")
		}
		return NewNotifier(url), nil
	})
}
