// Package domain defines the primitive identifier types shared across
// verticals. Construct values through the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"strconv"

	dErrors "custodia/pkg/domain-errors"
)

// AccountID is a ledger account address. The engine treats it as opaque text;
// only non-emptiness is enforced here.
type AccountID string

func (a AccountID) String() string { return string(a) }

// IsNil returns true when no account was provided.
func (a AccountID) IsNil() bool { return a == "" }

// ParseAccountID validates and returns an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	return AccountID(s), nil
}

// AssetID identifies the resource type held in custody. Opaque to the engine.
type AssetID string

func (a AssetID) String() string { return string(a) }

func (a AssetID) IsNil() bool { return a == "" }

// ContainerID is the monotonically allocated identifier of a custody record.
// Allocation starts at 1; zero is the unset sentinel.
type ContainerID uint64

func (c ContainerID) IsNil() bool { return c == 0 }

func (c ContainerID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParseContainerID parses a decimal container id from a route parameter.
func ParseContainerID(s string) (ContainerID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid container id %q", s)
	}
	return ContainerID(n), nil
}

// Tick is one unit of the monotonic logical clock (e.g. a ledger height).
// All deadlines in the custody engine are tick comparisons, never wall-clock
// waits.
type Tick uint64

func (t Tick) String() string {
	return strconv.FormatUint(uint64(t), 10)
}
