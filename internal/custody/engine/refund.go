package engine

import (
	"context"
	"fmt"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Abort lets the originator cancel an active container and take the deposit
// back.
func (e *Engine) Abort(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opAbort, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opAbort, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opAbort, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if err := requireActive(now, c); err != nil {
		return nil, err
	}

	return e.refund(ctx, c, now, caller, models.StatusAborted, models.ActionAborted)
}

// Revert is the overseer's unilateral unwind: the deposit goes back to the
// originator regardless of the parties' wishes.
func (e *Engine) Revert(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opRevert, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opRevert, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opRevert, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)

	return e.refund(ctx, c, now, caller, models.StatusReverted, models.ActionReverted)
}

// Reclaim refunds a container whose termination tick has passed without a
// release. It is the only operation that requires expiry instead of
// forbidding it.
func (e *Engine) Reclaim(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opReclaim, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opReclaim, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opReclaim, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if now <= c.Termination {
		return nil, dErrors.Newf(dErrors.CodeNotYetEligible,
			"container %d active until tick %d (now %d)", c.ID, c.Termination, now)
	}

	return e.refund(ctx, c, now, caller, models.StatusOutdated, models.ActionReclaimed)
}

// Recover is the time-locked escape hatch: once the cooling period since
// inception has elapsed, the overseer or the designated recovery agent may
// return the deposit to the originator.
func (e *Engine) Recover(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (c *models.Container, err error) {
	defer func() { e.observe(opRecover, err) }()
	unlock := e.locks.lock(containerID)
	defer unlock()

	c, err = e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(opRecover, caller, c); err != nil {
		return nil, err
	}
	if err := requireStatus(opRecover, c); err != nil {
		return nil, err
	}
	now := e.clock.Now(ctx)
	if eligible := c.Inception + e.cfg.CoolingPeriod; now < eligible {
		return nil, dErrors.Newf(dErrors.CodeNotYetEligible,
			"container %d recoverable from tick %d (now %d)", c.ID, eligible, now)
	}

	return e.refund(ctx, c, now, caller, models.StatusRecovered, models.ActionRecovered)
}

// refund returns the full deposit to the originator and stamps the terminal
// status.
func (e *Engine) refund(ctx context.Context, c *models.Container, now id.Tick, caller id.AccountID, terminal models.Status, action models.Action) (*models.Container, error) {
	if err := e.move(ctx, c.Asset, c.Quantity, e.cfg.EngineAccount, c.Originator); err != nil {
		return nil, err
	}
	c.Status = terminal
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}

	e.closeOut(0, c.Quantity)
	e.publish(ctx, models.NewEvent(now, c.ID, action, caller,
		fmt.Sprintf("refunded %d %s to %s", c.Quantity, c.Asset, c.Originator)))
	return c, nil
}
