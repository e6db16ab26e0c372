package httpexec

import "github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"

func init() {
	agentexec.Register(backendName, func(config map[string]string) (agentexec.Executor, error) {
		return New(config)
	})
}
