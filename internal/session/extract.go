package session

import (
	"bytes"
	"encoding/json"
)

// StatusSuccess is the status the tool reports for a successful run.
const StatusSuccess = "success"

// ToolOutput is the JSON document the tool prints when it finishes.
type ToolOutput struct {
	Status    string  `json:"status"`
	Response  string  `json:"response"`
	SessionID string  `json:"session_id"`
	Model     string  `json:"model"`
	Error     *string `json:"error"`
	ErrorType *string `json:"error_type"`
}

// rawOutput distinguishes a missing status from an empty one.
type rawOutput struct {
	Status    *string `json:"status"`
	Response  string  `json:"response"`
	SessionID string  `json:"session_id"`
	Model     string  `json:"model"`
	Error     *string `json:"error"`
	ErrorType *string `json:"error_type"`
}

func (r rawOutput) toolOutput() *ToolOutput {
	return &ToolOutput{
		Status:    *r.Status,
		Response:  r.Response,
		SessionID: r.SessionID,
		Model:     r.Model,
		Error:     r.Error,
		ErrorType: r.ErrorType,
	}
}

// ExtractResult recovers the tool's result object from stdout that may be
// mixed with progress text and terminal escape sequences. The whole stream
// is tried first. Otherwise every '{' is tried from the end backwards and the
// first one that starts a top-level object with a status wins. Bytes after
// that object are ignored.
func ExtractResult(raw []byte) (*ToolOutput, bool) {
	var whole rawOutput
	if err := json.Unmarshal(raw, &whole); err == nil && whole.Status != nil {
		return whole.toolOutput(), true
	}

	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] != '{' {
			continue
		}
		if out, ok := decodeAt(raw, i); ok {
			return out, true
		}
	}
	return nil, false
}

// decodeAt decodes the first JSON value starting at raw[start]. A value
// followed by ',', '}' or ']' sits inside a larger document and is rejected.
func decodeAt(raw []byte, start int) (*ToolOutput, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw[start:]))
	var out rawOutput
	if err := dec.Decode(&out); err != nil || out.Status == nil {
		return nil, false
	}

	rest := bytes.TrimLeft(raw[start+int(dec.InputOffset()):], " \t\r\n")
	if len(rest) > 0 {
		switch rest[0] {
		case ',', '}', ']':
			return nil, false
		}
	}
	return out.toolOutput(), true
}
