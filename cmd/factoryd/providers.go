package main

// Provider blank imports. Each import activates a self-registering
// adapter. The nats executor backend registers in run() instead because
// it needs the live queue connection.

import (
	_ "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/discord"
	_ "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/email"
	_ "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/httpexec"
	_ "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/slack"
	_ "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/stubexec"
)
