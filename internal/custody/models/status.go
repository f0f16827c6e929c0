package models

import dErrors "custodia/pkg/domain-errors"

// Status is the lifecycle state of a custody container. The set is closed:
// every transition site switches exhaustively over it, and terminal states
// admit no outgoing transitions.
type Status string

const (
	// StatusPending is the initial state after a funded create.
	StatusPending Status = "pending"
	// StatusAcknowledged means the destination has acknowledged the container.
	StatusAcknowledged Status = "acknowledged"
	// StatusConfirmed records completed secondary authorization.
	StatusConfirmed Status = "confirmed"
	// StatusDisputed is entered by either party before termination.
	StatusDisputed Status = "disputed"
	// StatusLocked is the emergency lockdown state.
	StatusLocked Status = "locked"
	// StatusSuspended pauses a container until an explicit resume.
	StatusSuspended Status = "suspended"

	// Terminal states. Funds have left custody; the record is a tombstone.
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusReverted  Status = "reverted"
	StatusResolved  Status = "resolved"
	StatusOutdated  Status = "outdated"
	StatusRecovered Status = "recovered"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusConfirmed, StatusDisputed,
		StatusLocked, StatusSuspended,
		StatusCompleted, StatusAborted, StatusReverted, StatusResolved,
		StatusOutdated, StatusRecovered:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no outgoing transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusAborted, StatusReverted, StatusResolved,
		StatusOutdated, StatusRecovered:
		return true
	}
	return false
}

// ParseStatus creates a Status from a string, validating it. Used when
// hydrating records from storage.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInternal, "unknown container status %q", s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }
