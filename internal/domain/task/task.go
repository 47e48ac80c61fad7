// Package task defines the report-generation task entity and its state machine.
package task

import (
	"errors"
	"time"
)

// Status represents the current state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSuccess || s == StatusFailed
}

// Task tracks one report-generation request from submission to a terminal
// outcome. ReportPath is set iff status is success; ErrorMessage iff failed.
type Task struct {
	ID           string     `json:"task_id"`
	CompanyID    string     `json:"company_id"`
	UserID       string     `json:"-"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ReportPath   string     `json:"report_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// CreateRequest holds the fields needed to submit a new task.
type CreateRequest struct {
	CompanyID string `json:"company_id"`
}

// Validate checks the company id format: non-empty, numeric only, bounded length.
func (r *CreateRequest) Validate() error {
	if r.CompanyID == "" {
		return errors.New("company_id is required")
	}
	if len(r.CompanyID) > 20 {
		return errors.New("company_id too long (max 20 chars)")
	}
	for _, c := range r.CompanyID {
		if c < '0' || c > '9' {
			return errors.New("company_id must be numeric")
		}
	}
	return nil
}
