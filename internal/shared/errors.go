package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the base sentinel wrapped by NotFoundError so callers can
// test with errors.Is without caring which entity was missing.
var ErrNotFound = errors.New("not found")

// ConfigurationError indicates the compliance module is not enabled (or not
// configured) for the company. Operations check this first and fail without
// side effects.
type ConfigurationError struct {
	CompanyID string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("company %s: %s", e.CompanyID, e.Reason)
	}
	return fmt.Sprintf("company %s: compliance module disabled", e.CompanyID)
}

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateConflictError indicates an operation attempted against a record in an
// incompatible state. State carries the record's current state so the caller
// can tell "too late" apart from "already submitted".
type StateConflictError struct {
	Entity string
	ID     string
	State  string
	Reason string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("%s %s is %s", e.Entity, e.ID, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// EligibilityError indicates a compliance confirmation attempted while the
// subcontractor does not qualify. Pending and Flagged list the requirement ids
// blocking eligibility.
type EligibilityError struct {
	PeriodID        string
	SubcontractorID string
	Pending         []string
	Flagged         []string
}

func (e *EligibilityError) Error() string {
	var parts []string
	if len(e.Pending) > 0 {
		parts = append(parts, "pending: "+strings.Join(e.Pending, ","))
	}
	if len(e.Flagged) > 0 {
		parts = append(parts, "flagged: "+strings.Join(e.Flagged, ","))
	}
	detail := "no submissions"
	if len(parts) > 0 {
		detail = strings.Join(parts, "; ")
	}
	return fmt.Sprintf("subcontractor %s not eligible for compliance in period %s (%s)",
		e.SubcontractorID, e.PeriodID, detail)
}

// TransientIOError wraps a store or network failure that is safe to retry.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// SchedulerStepError records a per-company failure inside the daily pass. The
// pass logs it and moves on to the next company.
type SchedulerStepError struct {
	CompanyID string
	Err       error
}

func (e *SchedulerStepError) Error() string {
	return fmt.Sprintf("scheduler step for company %s: %v", e.CompanyID, e.Err)
}

func (e *SchedulerStepError) Unwrap() error { return e.Err }
