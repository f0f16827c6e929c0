package models

import (
	"time"

	"github.com/google/uuid"

	id "custodia/pkg/domain"
)

// Action labels an audit event with the operation that produced it.
type Action string

const (
	ActionCreated           Action = "container.created"
	ActionAcknowledged      Action = "container.acknowledged"
	ActionConfirmed         Action = "container.confirmed"
	ActionReleased          Action = "container.released"
	ActionFinalized         Action = "container.finalized"
	ActionLocked            Action = "container.locked"
	ActionRecovered         Action = "container.recovered"
	ActionReverted          Action = "container.reverted"
	ActionAborted           Action = "container.aborted"
	ActionExtended          Action = "container.extended"
	ActionReclaimed         Action = "container.reclaimed"
	ActionDisputed          Action = "container.disputed"
	ActionResolved          Action = "container.resolved"
	ActionSuspended         Action = "container.suspended"
	ActionResumed           Action = "container.resumed"
	ActionTransferred       Action = "container.originator_transferred"
	ActionRecoveryAgentSet  Action = "container.recovery_agent_registered"
	ActionMultisigSet       Action = "container.multisig_registered"
	ActionProofVerified     Action = "container.proof_verified"
	ActionMultisigVerified  Action = "container.multisig_verified"
	ActionCredentialRotated Action = "container.credential_rotated"
)

// Event is emitted from the custody engine to capture every committed
// transition and advisory verification. Keep it transport-agnostic so sinks
// can fan out.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	EmittedAt   time.Time      `json:"emitted_at"`
	Tick        id.Tick        `json:"tick"`
	ContainerID id.ContainerID `json:"container_id"`
	Action      Action         `json:"action"`
	Actor       id.AccountID   `json:"actor"`
	Detail      string         `json:"detail,omitempty"`
}

// NewEvent stamps an event with a fresh id and the emission time.
func NewEvent(tick id.Tick, containerID id.ContainerID, action Action, actor id.AccountID, detail string) Event {
	return Event{
		ID:          uuid.New(),
		EmittedAt:   time.Now().UTC(),
		Tick:        tick,
		ContainerID: containerID,
		Action:      action,
		Actor:       actor,
		Detail:      detail,
	}
}
