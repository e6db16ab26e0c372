package email

import (
	"fmt"
	"strconv"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		for _, key := range []string{"host", "from", "to"} {
			if config[key] == "" {
				return nil, fmt.Errorf("email: %s is required", key)
			}
		}
		port, err := strconv.Atoi(config["port"])
		if err != nil || port <= 0 {
			port = 587
		}
		return NewNotifier(Config{
			Host:     config["host"],
			Port:     port,
			From:     config["from"],
			Password: config["password"],
			To:       config["to"],
		}), nil
	})
}
