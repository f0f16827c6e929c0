package engine

import (
	"context"
	"encoding/hex"
	"fmt"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// RegisterRecoveryAgent designates the account allowed to trigger time-locked
// recovery alongside the overseer. The agent must not be a party.
func (e *Engine) RegisterRecoveryAgent(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.RecoveryAgentRequest) (c *models.Container, err error) {
	defer func() { e.observe(opRegisterRecoveryAgent, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opRegisterRecoveryAgent, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opRegisterRecoveryAgent, c); err != nil {
		return nil, err
	}
	if req.Agent.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recovery agent is required")
	}
	if c.IsParty(req.Agent) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"recovery agent %s cannot be a party to container %d", req.Agent, c.ID)
	}
	now := e.clock.Now(ctx)

	c.RecoveryAgent = req.Agent
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionRecoveryAgentSet, caller,
		fmt.Sprintf("agent %s", req.Agent)))
	return c, nil
}

// RegisterMultisigPolicy stores a signer set and threshold on the record. From
// then on the destination-paying transitions require that many distinct
// signer approvals.
func (e *Engine) RegisterMultisigPolicy(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.MultisigPolicyRequest) (c *models.Container, err error) {
	defer func() { e.observe(opRegisterMultisig, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opRegisterMultisig, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opRegisterMultisig, c); err != nil {
		return nil, err
	}
	policy := &models.MultisigPolicy{Signers: req.Signers, Threshold: req.Threshold}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)

	c.Multisig = policy
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionMultisigSet, caller,
		fmt.Sprintf("%d of %d signers", policy.Threshold, len(policy.Signers))))
	return c, nil
}

// VerifyProof is an advisory check: it recovers the signer of a proof
// envelope without changing the record, and leaves an audit trace.
func (e *Engine) VerifyProof(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.VerifyProofRequest) (signer id.AccountID, err error) {
	defer func() { e.observe(opVerifyProof, err) }()

	c, err := e.load(ctx, containerID)
	if err != nil {
		return "", err
	}
	if err := e.authorize(opVerifyProof, caller, c); err != nil {
		return "", err
	}
	if err := requireStatus(opVerifyProof, c); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	signer, err = e.verifier.RecoverSigner(req.Digest, req.Signature)
	if err != nil {
		return "", err
	}
	e.publish(ctx, models.NewEvent(e.clock.Now(ctx), c.ID, models.ActionProofVerified, caller,
		fmt.Sprintf("signer %s", signer)))
	return signer, nil
}

// VerifyMultisig is an advisory threshold check: every supplied signature
// must recover a distinct signer registered in the container's policy, and
// the distinct count must meet the threshold. No record state changes.
func (e *Engine) VerifyMultisig(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.VerifyMultisigRequest) (signers []id.AccountID, err error) {
	defer func() { e.observe(opVerifyMultisig, err) }()

	c, err := e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opVerifyMultisig, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opVerifyMultisig, c); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.Multisig == nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"container %d has no multisig policy", c.ID)
	}

	seen := make(map[id.AccountID]struct{}, len(req.Signatures))
	for _, sig := range req.Signatures {
		signer, err := e.verifier.RecoverSigner(req.Digest, sig)
		if err != nil {
			return nil, err
		}
		if !c.Multisig.Allows(signer) {
			return nil, dErrors.Newf(dErrors.CodeForbidden,
				"signature from %s is not a registered signer of container %d", signer, c.ID)
		}
		if _, dup := seen[signer]; dup {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "duplicate signature from %s", signer)
		}
		seen[signer] = struct{}{}
		signers = append(signers, signer)
	}
	if len(seen) < c.Multisig.Threshold {
		return nil, dErrors.Newf(dErrors.CodeForbidden,
			"container %d requires %d signatures, got %d", c.ID, c.Multisig.Threshold, len(seen))
	}

	e.publish(ctx, models.NewEvent(e.clock.Now(ctx), c.ID, models.ActionMultisigVerified, caller,
		fmt.Sprintf("%d signers verified", len(signers))))
	return signers, nil
}

// RotateCredential records a credential rotation digest in the audit stream.
// The record itself is untouched; downstream systems react to the event.
func (e *Engine) RotateCredential(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.RotateCredentialRequest) (err error) {
	defer func() { e.observe(opRotateCredential, err) }()

	c, err := e.load(ctx, containerID)
	if err != nil {
		return err
	}
	if err := e.authorize(opRotateCredential, caller, c); err != nil {
		return err
	}
	if err := requireStatus(opRotateCredential, c); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	e.publish(ctx, models.NewEvent(e.clock.Now(ctx), c.ID, models.ActionCredentialRotated, caller,
		hex.EncodeToString(req.CredentialDigest)))
	return nil
}
