// Package engine implements the custody state machine.
//
// Every operation follows the same discipline: load the record, authorize the
// caller, check the state allow-set, check the time bound, and only then move
// funds and commit the updated record. Any guard failure aborts the whole
// operation with no partial state change; the registry write happens only
// after the resource movement succeeded.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"custodia/internal/custody/metrics"
	"custodia/internal/custody/models"
	"custodia/internal/custody/ports"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Engine validates preconditions, computes transition outcomes, invokes the
// resource mover and identity verifier, and commits new state to the
// registry.
type Engine struct {
	registry ports.Registry
	mover    ports.ResourceMover
	verifier ports.IdentityVerifier
	clock    ports.Clock
	cfg      Config

	events  ports.EventSink
	logger  *slog.Logger
	metrics *metrics.Metrics

	locks keyedMutex
}

// Config carries the engine's policy constants. All windows are logical
// ticks.
type Config struct {
	EngineAccount    id.AccountID
	OverseerAccount  id.AccountID
	DefaultLifespan  id.Tick
	CoolingPeriod    id.Tick
	LockdownWindow   id.Tick
	ExtensionCap     id.Tick
	ConfirmThreshold int64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventSink attaches the audit event sink.
func WithEventSink(sink ports.EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// WithMetrics attaches custody metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine. Registry, mover, verifier, and clock are
// required; events, logging, and metrics are optional.
func New(registry ports.Registry, mover ports.ResourceMover, verifier ports.IdentityVerifier, clock ports.Clock, cfg Config, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if mover == nil {
		return nil, fmt.Errorf("resource mover is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("identity verifier is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.EngineAccount.IsNil() || cfg.OverseerAccount.IsNil() {
		return nil, fmt.Errorf("engine and overseer accounts are required")
	}
	if cfg.DefaultLifespan == 0 {
		return nil, fmt.Errorf("default lifespan must be positive")
	}

	e := &Engine{
		registry: registry,
		mover:    mover,
		verifier: verifier,
		clock:    clock,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Create funds a new container: the quantity is deposited into the engine's
// custodial account first, then the record is inserted with status pending.
func (e *Engine) Create(ctx context.Context, caller id.AccountID, req models.CreateContainerRequest) (c *models.Container, err error) {
	defer func() { e.observe(opCreate, err) }()

	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := acceptableDestination(req.Destination, caller, e.cfg.EngineAccount); err != nil {
		return nil, err
	}

	now := e.clock.Now(ctx)
	containerID, err := e.registry.AllocateID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cannot allocate container id")
	}

	c = &models.Container{
		ID:          containerID,
		Originator:  caller,
		Destination: req.Destination,
		Asset:       req.Asset,
		Quantity:    req.Quantity,
		Status:      models.StatusPending,
		Inception:   now,
		Termination: now + e.cfg.DefaultLifespan,
	}

	// Deposit first; the record only exists once the funds are held.
	if err := e.move(ctx, c.Asset, c.Quantity, caller, e.cfg.EngineAccount); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, c); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.OpenContainers.Inc()
	}
	e.publish(ctx, models.NewEvent(now, c.ID, models.ActionCreated, caller,
		fmt.Sprintf("deposited %d %s for %s", c.Quantity, c.Asset, c.Destination)))
	return c, nil
}

// Get returns a copy of the container record or CodeNotFound.
func (e *Engine) Get(ctx context.Context, containerID id.ContainerID) (*models.Container, error) {
	c, err := e.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// acceptableDestination rejects degenerate self-dealing containers.
func acceptableDestination(dest, caller, engineAccount id.AccountID) error {
	if dest == caller {
		return dErrors.New(dErrors.CodeInvalidInput, "destination cannot equal the originator")
	}
	if dest == engineAccount {
		return dErrors.New(dErrors.CodeInvalidInput, "destination cannot be the custodial account")
	}
	return nil
}

// load fetches a record, normalizing storage failures into domain errors.
func (e *Engine) load(ctx context.Context, containerID id.ContainerID) (*models.Container, error) {
	if containerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "container id is required")
	}
	c, err := e.registry.Get(ctx, containerID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cannot load container")
	}
	return c, nil
}

// move delegates to the resource mover, classifying failures.
func (e *Engine) move(ctx context.Context, asset id.AssetID, quantity int64, from, to id.AccountID) error {
	if err := e.mover.Move(ctx, asset, quantity, from, to); err != nil {
		return dErrors.Wrap(err, dErrors.CodeMovementFailed,
			fmt.Sprintf("cannot move %d %s from %s to %s", quantity, asset, from, to))
	}
	return nil
}

// commit persists the record after a validated transition.
func (e *Engine) commit(ctx context.Context, c *models.Container) error {
	if err := e.registry.Put(ctx, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "cannot store container")
	}
	return nil
}

// publish appends an audit event. Sink failures are logged, never surfaced:
// observability must not fail a committed transition.
func (e *Engine) publish(ctx context.Context, event models.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "audit event dropped",
			"action", event.Action,
			"container_id", event.ContainerID,
			"error", err,
		)
	}
}

// observe records the transition outcome metric.
func (e *Engine) observe(op operation, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.GetCode(err))
	}
	e.metrics.ObserveTransition(string(op), outcome)
}

// closeOut performs the shared bookkeeping of a terminal transition.
func (e *Engine) closeOut(released, refunded int64) {
	if e.metrics == nil {
		return
	}
	e.metrics.OpenContainers.Dec()
	if released > 0 {
		e.metrics.ReleasedTotal.Add(float64(released))
	}
	if refunded > 0 {
		e.metrics.RefundedTotal.Add(float64(refunded))
	}
}
