package app

import "time"

// Operation identifies one CLI invocation in the log. Every line written
// during the invocation carries RunID, so a single `serve` session or
// backup can be pulled out of sari.log with grep.
type Operation struct {
	Name    string
	RunID   string
	Started time.Time
	Status  string // "success" or "error"
}

// NewOperation starts an operation at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		Name:    name,
		RunID:   now.UTC().Format("20060102T150405Z"),
		Started: now,
		Status:  "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Succeeded reports whether Fail was never called.
func (op *Operation) Succeeded() bool {
	return op.Status == "success"
}
