package engine

import (
	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// operation names every transition for authorization, metrics, and digests.
type operation string

const (
	opCreate                operation = "create"
	opAcknowledge           operation = "acknowledge"
	opConfirm               operation = "confirm"
	opRelease               operation = "release"
	opFinalize              operation = "finalize"
	opLockdown              operation = "lockdown"
	opRecover               operation = "recover"
	opRevert                operation = "revert"
	opAbort                 operation = "abort"
	opExtend                operation = "extend"
	opReclaim               operation = "reclaim"
	opDispute               operation = "dispute"
	opResolve               operation = "resolve"
	opSuspend               operation = "suspend"
	opResume                operation = "resume"
	opTransfer              operation = "transfer"
	opRegisterRecoveryAgent operation = "register_recovery_agent"
	opRegisterMultisig      operation = "register_multisig"
	opVerifyProof           operation = "verify_proof"
	opVerifyMultisig        operation = "verify_multisig"
	opRotateCredential      operation = "rotate_credential"
)

// allowedFrom is the state allow-set per record-bearing transition. An
// operation missing from this table accepts any non-terminal status.
var allowedFrom = map[operation][]models.Status{
	opAcknowledge:           {models.StatusPending},
	opConfirm:               {models.StatusPending},
	opRelease:               {models.StatusPending, models.StatusConfirmed},
	opFinalize:              {models.StatusPending, models.StatusConfirmed},
	opLockdown:              {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed},
	opRecover:               {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed, models.StatusLocked},
	opRevert:                {models.StatusPending, models.StatusConfirmed},
	opAbort:                 {models.StatusPending, models.StatusConfirmed},
	opExtend:                {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed},
	opReclaim:               {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed},
	opDispute:               {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed},
	opResolve:               {models.StatusDisputed},
	opSuspend:               {models.StatusPending, models.StatusAcknowledged, models.StatusConfirmed},
	opResume:                {models.StatusSuspended},
	opTransfer:              {models.StatusPending, models.StatusAcknowledged},
	opRegisterRecoveryAgent: {models.StatusPending, models.StatusAcknowledged},
	opRegisterMultisig:      {models.StatusPending, models.StatusAcknowledged},
}

// authorize is the capability check for one transition: it decides, before
// any mutation is attempted, whether the caller may request the operation on
// this container. Reject-first, mutate-last.
func (e *Engine) authorize(op operation, caller id.AccountID, c *models.Container) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	overseer := e.cfg.OverseerAccount
	allowed := false
	switch op {
	case opAcknowledge:
		allowed = caller == c.Destination
	case opConfirm, opDispute:
		allowed = c.IsParty(caller)
	case opRelease, opLockdown, opExtend, opSuspend, opResume:
		allowed = c.IsParty(caller) || caller == overseer
	case opFinalize, opReclaim, opTransfer:
		allowed = caller == c.Originator || caller == overseer
	case opAbort:
		allowed = caller == c.Originator
	case opRevert, opResolve:
		allowed = caller == overseer
	case opRecover:
		// The recovery agent must have been designated and must not have
		// become a party since registration.
		agentOK := !c.RecoveryAgent.IsNil() && caller == c.RecoveryAgent && !c.IsParty(caller)
		allowed = caller == overseer || agentOK
	case opRegisterRecoveryAgent, opRegisterMultisig:
		allowed = caller == c.Originator
	case opRotateCredential:
		allowed = c.IsParty(caller) || caller == overseer
	case opVerifyProof, opVerifyMultisig:
		// Advisory checks carry their own proof material; any authenticated
		// caller may request them.
		allowed = true
	default:
		return dErrors.Newf(dErrors.CodeInternal, "no authorization rule for operation %s", op)
	}

	if !allowed {
		return dErrors.Newf(dErrors.CodeForbidden,
			"account %s may not %s container %d", caller, op, c.ID)
	}
	return nil
}

// requireStatus enforces the state allow-set. Terminal states fail first so
// the error message names the tombstone explicitly.
func requireStatus(op operation, c *models.Container) error {
	if c.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"container %d is terminal (%s)", c.ID, c.Status)
	}
	allowed, ok := allowedFrom[op]
	if !ok {
		// No entry: any non-terminal status is acceptable.
		return nil
	}
	for _, s := range allowed {
		if c.Status == s {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvalidState,
		"cannot %s container %d from status %s", op, c.ID, c.Status)
}

// requireActive rejects operations whose default window closed at the
// termination tick.
func requireActive(now id.Tick, c *models.Container) error {
	if now > c.Termination {
		return dErrors.Newf(dErrors.CodeExpired,
			"container %d terminated at tick %d (now %d)", c.ID, c.Termination, now)
	}
	return nil
}
