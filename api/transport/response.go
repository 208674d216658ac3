package transport

import "encoding/json"

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional metadata.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// FieldErrors is the meta payload of a validation failure.
type FieldErrors struct {
	Fields map[string]string `json:"fields"`
}

// Outcome answers the boolean lifecycle operations.
type Outcome struct {
	ID      string `json:"id"`
	Changed bool   `json:"changed"`
}

// BatchResult reports how many tasks a batch call changed.
type BatchResult struct {
	Action   string `json:"action"`
	Affected int    `json:"affected"`
}
