package budget

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input rejected before any store access.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotAuthenticated is returned when no user is attached to the call.
	ErrNotAuthenticated = errors.New("not authenticated")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ReadError reports which store query failed while building a summary.
type ReadError struct {
	Query string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Query, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Outcome describes how far a budget update got.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeCatalogOnly    Outcome = "catalog_only"
	OutcomeNothingChanged Outcome = "nothing_changed"
)

// Stage names the write that failed.
type Stage string

const (
	StageCreateCategory Stage = "create_category"
	StageCatalogDefault Stage = "catalog_default"
	StageOverride       Stage = "override"
)

// UpdateError is returned when a budget write fails. Outcome tells the caller
// what state the store was left in.
type UpdateError struct {
	Outcome Outcome
	Stage   Stage
	Err     error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s (failed at %s): %v", e.Message(), e.Stage, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Message is the user-facing description of the failure.
func (e *UpdateError) Message() string {
	if e.Outcome == OutcomeCatalogOnly {
		return "default updated, but this month may not reflect it yet"
	}
	return "update failed, nothing changed"
}
