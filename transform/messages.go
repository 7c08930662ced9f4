package transform

import (
	"github.com/fulldump/lazytable/record"
)

const (
	ActionProcessData   = "processData"
	ActionProcessedData = "processedData"
)

// Request is the envelope sent to the worker. ID pairs it with its Response.
type Request struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// Response carries either the processed batch or an error message.
type Response struct {
	ID     string          `json:"id"`
	Action string          `json:"action,omitempty"`
	Data   []record.Record `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// InvalidInputError is returned when the submitted payload is not an ordered
// sequence of maps, or one of its items cannot be normalized.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}
