package models

import (
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Approval is one party's signature over the operation digest of a
// value-moving request. The signature envelope format is defined by the
// identity verifier.
type Approval struct {
	Signature []byte `json:"signature"`
}

// CreateContainerRequest funds a new container.
type CreateContainerRequest struct {
	Destination id.AccountID `json:"destination"`
	Asset       id.AssetID   `json:"asset"`
	Quantity    int64        `json:"quantity"`
}

func (r *CreateContainerRequest) Validate() error {
	if r.Destination.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "destination is required")
	}
	if r.Asset.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	if r.Quantity <= 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "quantity must be positive, got %d", r.Quantity)
	}
	return nil
}

// ConfirmRequest records secondary authorization. ProofExpiry is the logical
// tick after which the supplied proof is no longer acceptable.
type ConfirmRequest struct {
	ProofExpiry id.Tick `json:"proof_expiry"`
}

// ReleaseRequest splits the held quantity: pct% to the originator, the
// remainder to the destination.
type ReleaseRequest struct {
	Percentage int        `json:"percentage"`
	Approvals  []Approval `json:"approvals,omitempty"`
}

// FinalizeRequest pays the full quantity to the destination.
type FinalizeRequest struct {
	Approvals []Approval `json:"approvals,omitempty"`
}

// ExtendRequest pushes the termination tick out by Delta.
type ExtendRequest struct {
	Delta id.Tick `json:"delta"`
}

// ResolveRequest settles a dispute with an overseer-chosen allocation.
type ResolveRequest struct {
	Percentage int        `json:"percentage"`
	Approvals  []Approval `json:"approvals,omitempty"`
}

// TransferRequest reassigns container responsibility to a new originator.
type TransferRequest struct {
	NewOriginator id.AccountID `json:"new_originator"`
}

// RecoveryAgentRequest designates the account allowed to trigger time-locked
// recovery.
type RecoveryAgentRequest struct {
	Agent id.AccountID `json:"agent"`
}

// MultisigPolicyRequest registers a signer set and threshold on the record.
type MultisigPolicyRequest struct {
	Signers   []id.AccountID `json:"signers"`
	Threshold int            `json:"threshold"`
}

// VerifyProofRequest is an advisory single-signature check.
type VerifyProofRequest struct {
	Digest    []byte `json:"digest"`
	Signature []byte `json:"signature"`
}

func (r *VerifyProofRequest) Validate() error {
	if len(r.Digest) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "digest is required")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "signature is required")
	}
	return nil
}

// VerifyMultisigRequest is an advisory threshold check against the record's
// registered policy.
type VerifyMultisigRequest struct {
	Digest     []byte   `json:"digest"`
	Signatures [][]byte `json:"signatures"`
}

func (r *VerifyMultisigRequest) Validate() error {
	if len(r.Digest) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "digest is required")
	}
	if len(r.Signatures) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one signature is required")
	}
	return nil
}

// RotateCredentialRequest records a credential rotation digest in the audit
// stream. No record state changes.
type RotateCredentialRequest struct {
	CredentialDigest []byte `json:"credential_digest"`
}

func (r *RotateCredentialRequest) Validate() error {
	if len(r.CredentialDigest) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "credential digest is required")
	}
	return nil
}
