package engine

import (
	"context"
	"fmt"

	"custodia/internal/custody/models"
	"custodia/internal/custody/verifier"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Release splits the held quantity between the parties and completes the
// container. Percentage is the originator's share; the destination receives
// the remainder, so the deposit is conserved exactly.
func (e *Engine) Release(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ReleaseRequest) (c *models.Container, err error) {
	defer func() { e.observe(opRelease, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opRelease, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opRelease, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}
	toOriginator, toDestination, err := splitShares(c.Quantity, req.Percentage)
	if err != nil {
		return nil, err
	}
	if err := e.requireApprovals(opRelease, c, req.Percentage, req.Approvals); err != nil {
		return nil, err
	}

	if err := e.disburse(ctx, c, toOriginator, toDestination); err != nil {
		return nil, err
	}
	c.Status = models.StatusCompleted
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}

	e.closeOut(toDestination, toOriginator)
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionReleased, caller,
		fmt.Sprintf("split %d%%: %d to originator, %d to destination", req.Percentage, toOriginator, toDestination)))
	return c, nil
}

// Finalize pays the full held quantity to the destination and completes the
// container.
func (e *Engine) Finalize(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.FinalizeRequest) (c *models.Container, err error) {
	defer func() { e.observe(opFinalize, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opFinalize, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opFinalize, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}
	if err := e.requireApprovals(opFinalize, c, 0, req.Approvals); err != nil {
		return nil, err
	}

	if err := e.move(ctx, c.Asset, c.Quantity, e.cfg.EngineAccount, c.Destination); err != nil {
		return nil, err
	}
	c.Status = models.StatusCompleted
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}

	e.closeOut(c.Quantity, 0)
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionFinalized, caller,
		fmt.Sprintf("paid %d %s to %s", c.Quantity, c.Asset, c.Destination)))
	return c, nil
}

// Resolve settles a disputed container with an overseer-chosen split.
func (e *Engine) Resolve(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ResolveRequest) (c *models.Container, err error) {
	defer func() { e.observe(opResolve, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opResolve, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opResolve, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}
	toOriginator, toDestination, err := splitShares(c.Quantity, req.Percentage)
	if err != nil {
		return nil, err
	}
	if err := e.requireApprovals(opResolve, c, req.Percentage, req.Approvals); err != nil {
		return nil, err
	}

	if err := e.disburse(ctx, c, toOriginator, toDestination); err != nil {
		return nil, err
	}
	c.Status = models.StatusResolved
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}

	e.closeOut(toDestination, toOriginator)
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionResolved, caller,
		fmt.Sprintf("arbitrated %d%%: %d to originator, %d to destination", req.Percentage, toOriginator, toDestination)))
	return c, nil
}

// disburse pays both shares out of the custodial account. Zero shares are
// skipped so the mover never sees a no-op transfer.
func (e *Engine) disburse(ctx context.Context, c *models.Container, toOriginator, toDestination int64) error {
	if toOriginator > 0 {
		if err := e.move(ctx, c.Asset, toOriginator, e.cfg.EngineAccount, c.Originator); err != nil {
			return err
		}
	}
	if toDestination > 0 {
		if err := e.move(ctx, c.Asset, toDestination, e.cfg.EngineAccount, c.Destination); err != nil {
			return err
		}
	}
	return nil
}

// requireApprovals enforces the container's multisig policy, when one is
// registered, on a destination-paying transition. Each approval must recover
// a distinct registered signer over this operation's digest.
func (e *Engine) requireApprovals(op operation, c *models.Container, percentage int, approvals []models.Approval) error {
	if c.Multisig == nil {
		return nil
	}

	digest := verifier.OperationDigest(string(op), c.ID, percentage, c.Quantity)
	seen := make(map[id.AccountID]struct{}, len(approvals))
	for _, a := range approvals {
		signer, err := e.verifier.RecoverSigner(digest, a.Signature)
		if err != nil {
			return err
		}
		if !c.Multisig.Allows(signer) {
			return dErrors.Newf(dErrors.CodeForbidden,
				"approval from %s is not a registered signer of container %d", signer, c.ID)
		}
		if _, dup := seen[signer]; dup {
			return dErrors.Newf(dErrors.CodeInvalidInput, "duplicate approval from %s", signer)
		}
		seen[signer] = struct{}{}
	}
	if len(seen) < c.Multisig.Threshold {
		return dErrors.Newf(dErrors.CodeForbidden,
			"container %d requires %d approvals, got %d", c.ID, c.Multisig.Threshold, len(seen))
	}
	return nil
}
