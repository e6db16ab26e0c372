package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	// Map subject to payload struct for structural validation.
	var target any
	switch {
	case subject == SubjectRunCreated:
		target = &RunCreatedPayload{}
	case subject == SubjectRunCancel:
		target = &RunCancelPayload{}
	case subject == SubjectNotifyRuns:
		target = &NotifyRunPayload{}
	case subject == SubjectUnitResult:
		target = &UnitResultPayload{}
	case subject == SubjectRunStatus || strings.HasPrefix(subject, SubjectRunStatus+"."):
		target = &RunStatusPayload{}
	case strings.HasPrefix(subject, SubjectUnitInvoke+"."):
		target = &UnitInvokePayload{}
	case strings.HasPrefix(subject, SubjectRunEvents+"."), subject == SubjectAuditTrail:
		// Event and audit payloads are owned by their producers.
		// Accept any valid JSON.
		return nil
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
