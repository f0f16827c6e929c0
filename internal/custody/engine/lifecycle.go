package engine

import (
	"context"
	"fmt"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Acknowledge records the destination's acceptance of the arrangement.
func (e *Engine) Acknowledge(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opAcknowledge, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opAcknowledge, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opAcknowledge, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}

	c.Status = models.StatusAcknowledged
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionAcknowledged, caller, ""))
	return c, nil
}

// Confirm records secondary authorization for a high-value container. The
// supplied proof carries its own expiration tick and the quantity must exceed
// the configured confirmation threshold.
func (e *Engine) Confirm(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ConfirmRequest) (c *models.Container, err error) {
	defer func() { e.observe(opConfirm, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opConfirm, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opConfirm, c); err != nil {
		return nil, err
	}
	if c.Quantity <= e.cfg.ConfirmThreshold {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"container %d quantity %d does not require confirmation (threshold %d)",
			c.ID, c.Quantity, e.cfg.ConfirmThreshold)
	}
	now := e.clock.Now(ctx)
	if now >= req.ProofExpiry {
		return nil, dErrors.Newf(dErrors.CodeExpired,
			"confirmation proof expired at tick %d (now %d)", req.ProofExpiry, now)
	}

	c.Status = models.StatusConfirmed
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionConfirmed, caller, ""))
	return c, nil
}

// Lockdown freezes the container. The returned tick is an advisory review
// deadline (now plus the lockdown window); the freeze itself does not lapse.
func (e *Engine) Lockdown(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, reviewBy id.Tick, err error) {
	defer func() { e.observe(opLockdown, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, 0, err
	}
	if err := e.authorize(opLockdown, caller, c); err != nil {
		return nil, 0, err
	}
	if err := requireStatus(opLockdown, c); err != nil {
		return nil, 0, err
	}
	now := e.clock.Now(ctx)

	c.Status = models.StatusLocked
	if err := e.commit(ctx, c); err != nil {
		return nil, 0, err
	}
	reviewBy = now + e.cfg.LockdownWindow
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionLocked, caller,
		fmt.Sprintf("review by tick %d", reviewBy)))
	return c, reviewBy, nil
}

// Extend pushes the termination tick out by delta. Termination only ever
// grows, and only while the container is still active: a lapsed container
// belongs to the reclaim path and cannot be revived.
func (e *Engine) Extend(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ExtendRequest) (c *models.Container, err error) {
	defer func() { e.observe(opExtend, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opExtend, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opExtend, c); err != nil {
		return nil, err
	}
	if req.Delta == 0 || req.Delta > e.cfg.ExtensionCap {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"extension delta must be within (0,%d], got %d", e.cfg.ExtensionCap, req.Delta)
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}

	c.Termination += req.Delta
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionExtended, caller,
		fmt.Sprintf("termination now tick %d", c.Termination)))
	return c, nil
}

// Dispute escalates the container to overseer arbitration.
func (e *Engine) Dispute(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opDispute, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opDispute, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opDispute, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}

	c.Status = models.StatusDisputed
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionDisputed, caller, ""))
	return c, nil
}

// Suspend parks the container; only Resume may move it again.
func (e *Engine) Suspend(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opSuspend, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opSuspend, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opSuspend, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)

	c.Status = models.StatusSuspended
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionSuspended, caller, ""))
	return c, nil
}

// Resume returns a suspended container to pending.
func (e *Engine) Resume(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opResume, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opResume, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opResume, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)

	c.Status = models.StatusPending
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionResumed, caller, ""))
	return c, nil
}

// TransferOriginator reassigns responsibility for the container to a new
// originator. Refund paths pay the new originator from then on.
func (e *Engine) TransferOriginator(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.TransferRequest) (c *models.Container, err error) {
	defer func() { e.observe(opTransfer, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opTransfer, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opTransfer, c); err != nil {
		return nil, err
	}
	if req.NewOriginator.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "new originator is required")
	}
	if c.IsParty(req.NewOriginator) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"account %s is already a party to container %d", req.NewOriginator, c.ID)
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}

	previous := c.Originator
	c.Originator = req.NewOriginator
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionTransferred, caller,
		fmt.Sprintf("originator %s replaced by %s", previous, req.NewOriginator)))
	return c, nil
}
