package messagequeue

// RunCreatedPayload is the schema for runs.created messages.
type RunCreatedPayload struct {
	RunID     string `json:"run_id"`
	RequestID string `json:"request_id"`
	Domain    string `json:"domain"`
	Topic     string `json:"topic"`
}

// RunStatusPayload is the schema for runs.status messages.
type RunStatusPayload struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Phase  int    `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

// RunCancelPayload is the schema for runs.cancel messages.
type RunCancelPayload struct {
	RunID  string `json:"run_id"`
	Reason string `json:"reason,omitempty"`
}

// UnitInvokePayload is the schema for units.invoke messages dispatched
// to remote agent workers.
type UnitInvokePayload struct {
	RunID          string            `json:"run_id"`
	UnitID         string            `json:"unit_id"`
	AgentKind      string            `json:"agent_kind"`
	Role           string            `json:"role,omitempty"`
	Topic          string            `json:"topic"`
	Description    string            `json:"description,omitempty"`
	Audience       string            `json:"audience,omitempty"`
	Context        map[string]string `json:"context,omitempty"`
	Attempt        int               `json:"attempt"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

// UnitResultPayload is the schema for units.result messages.
type UnitResultPayload struct {
	RunID           string  `json:"run_id"`
	UnitID          string  `json:"unit_id"`
	AgentKind       string  `json:"agent_kind"`
	Success         bool    `json:"success"`
	Content         string  `json:"content"`
	QualityEstimate float64 `json:"quality_estimate"`
	Error           string  `json:"error,omitempty"`
	DurationMS      int64   `json:"duration_ms"`
}

// NotifyRunPayload is the schema for notify.runs messages announcing a
// terminal run state.
type NotifyRunPayload struct {
	RunID     string  `json:"run_id"`
	RequestID string  `json:"request_id"`
	Status    string  `json:"status"`
	Domain    string  `json:"domain"`
	Aggregate float64 `json:"aggregate,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}
