package workers

import (
	"encoding/json"

	"github.com/kestrel-aero/charterdesk/internal/agent"
)

// decodePayload unmarshals the task payload, converting a malformed
// payload into a permanent validation failure.
func decodePayload(tc *agent.TaskContext, v any) error {
	if err := json.Unmarshal(tc.Payload, v); err != nil {
		return &agent.TaskError{
			Message: "invalid task payload: " + err.Error(),
			Code:    "validation",
			Source:  "workers",
		}
	}
	return nil
}
