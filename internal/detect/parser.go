package detect

import (
	"bufio"
	"encoding/json"
	"strings"
)

// DetectionPayload is the structured alert a worker emits on stdout when it
// finds an anomaly. FrameFilename doubles as the alert's frame storage key.
type DetectionPayload struct {
	AlertType     string         `json:"alert_type"`
	Message       string         `json:"message"`
	FrameFilename string         `json:"frame_filename"`
	Details       map[string]any `json:"details"`
}

// ParseOutput extracts the detection payload from raw worker stdout.
//
// The worker may print free-form chatter before or after the payload; only a
// line that is a brace-delimited JSON object is treated as the payload, and
// the first such line wins. Returns (nil, nil) when no payload line exists —
// a successful run with no anomaly. A payload line that fails to parse or is
// missing a required field returns a *ContractError carrying the raw stdout
// verbatim; partial payloads are never accepted.
func ParseOutput(stdout string) (*DetectionPayload, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		return validatePayload(line, stdout)
	}

	return nil, nil
}

func validatePayload(line, raw string) (*DetectionPayload, error) {
	var fields struct {
		AlertType     *string         `json:"alert_type"`
		Message       *string         `json:"message"`
		FrameFilename *string         `json:"frame_filename"`
		Details       json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, &ContractError{Reason: "payload line is not valid JSON: " + err.Error(), Raw: raw}
	}

	switch {
	case fields.AlertType == nil || *fields.AlertType == "":
		return nil, &ContractError{Reason: "missing or empty alert_type", Raw: raw}
	case fields.Message == nil:
		return nil, &ContractError{Reason: "missing message", Raw: raw}
	case fields.FrameFilename == nil || *fields.FrameFilename == "":
		return nil, &ContractError{Reason: "missing or empty frame_filename", Raw: raw}
	case len(fields.Details) == 0 || string(fields.Details) == "null":
		return nil, &ContractError{Reason: "missing details", Raw: raw}
	}

	var details map[string]any
	if err := json.Unmarshal(fields.Details, &details); err != nil {
		return nil, &ContractError{Reason: "details is not an object", Raw: raw}
	}

	return &DetectionPayload{
		AlertType:     *fields.AlertType,
		Message:       *fields.Message,
		FrameFilename: *fields.FrameFilename,
		Details:       details,
	}, nil
}
