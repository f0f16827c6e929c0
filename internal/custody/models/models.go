// Package models holds the custody domain entities and request shapes.
package models

import (
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Container is one custody arrangement: a deposited quantity awaiting
// conditional release. Records are never deleted; terminal statuses are
// permanent tombstones kept for audit.
type Container struct {
	ID          id.ContainerID
	Originator  id.AccountID
	Destination id.AccountID
	Asset       id.AssetID
	Quantity    int64
	Status      Status

	// Inception and Termination are logical-tick bounds. Termination is
	// non-decreasing over the life of the record.
	Inception   id.Tick
	Termination id.Tick

	// RecoveryAgent, when set, may trigger time-locked recovery alongside
	// the overseer. Must never be a party to the container.
	RecoveryAgent id.AccountID

	// Multisig, when set, gates the destination-paying transitions on a
	// signature threshold.
	Multisig *MultisigPolicy
}

// Clone returns a deep copy so store reads never alias engine mutations.
func (c *Container) Clone() *Container {
	dup := *c
	if c.Multisig != nil {
		dup.Multisig = c.Multisig.Clone()
	}
	return &dup
}

// IsParty reports whether the account is the originator or the destination.
func (c *Container) IsParty(acct id.AccountID) bool {
	return acct == c.Originator || acct == c.Destination
}

// MultisigPolicy is a required-signatures threshold stored on the record and
// checked as a precondition on release transitions.
type MultisigPolicy struct {
	Signers   []id.AccountID
	Threshold int
}

// Validate enforces distinct signers and a threshold within bounds.
func (p *MultisigPolicy) Validate() error {
	if len(p.Signers) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "multisig policy requires at least one signer")
	}
	seen := make(map[id.AccountID]struct{}, len(p.Signers))
	for _, s := range p.Signers {
		if s.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "multisig signer cannot be empty")
		}
		if _, dup := seen[s]; dup {
			return dErrors.Newf(dErrors.CodeInvalidInput, "duplicate multisig signer %s", s)
		}
		seen[s] = struct{}{}
	}
	if p.Threshold <= 0 || p.Threshold > len(p.Signers) {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"multisig threshold %d out of range [1,%d]", p.Threshold, len(p.Signers))
	}
	return nil
}

// Allows reports whether the account is a registered signer.
func (p *MultisigPolicy) Allows(acct id.AccountID) bool {
	for _, s := range p.Signers {
		if s == acct {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the policy.
func (p *MultisigPolicy) Clone() *MultisigPolicy {
	signers := make([]id.AccountID, len(p.Signers))
	copy(signers, p.Signers)
	return &MultisigPolicy{Signers: signers, Threshold: p.Threshold}
}
