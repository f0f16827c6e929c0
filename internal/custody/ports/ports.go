// Package ports defines the custody module's collaborator interfaces.
// The engine consumes external capabilities (persistence, fund movement,
// identity recovery, the logical clock, the event stream) exclusively through
// these contracts so implementations can be swapped in tests and deployments.
package ports

import (
	"context"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Registry is the durable container store. Ids are allocated monotonically
// starting at 1 and never reused; Put overwrites and is only called by the
// engine after a validated transition.
type Registry interface {
	// AllocateID returns the next unique container id.
	AllocateID(ctx context.Context) (id.ContainerID, error)

	// Get returns the record or a CodeNotFound domain error.
	Get(ctx context.Context, containerID id.ContainerID) (*models.Container, error)

	// Put overwrites the record for container.ID.
	Put(ctx context.Context, container *models.Container) error
}

// ResourceMover moves a quantity of an asset between two accounts. Each call
// is atomic: it either fully transfers or fails with no partial movement.
type ResourceMover interface {
	Move(ctx context.Context, asset id.AssetID, quantity int64, from, to id.AccountID) error
}

// IdentityVerifier recovers the signer account from a (digest, signature)
// pair. Pure and deterministic.
type IdentityVerifier interface {
	RecoverSigner(digest []byte, signature []byte) (id.AccountID, error)
}

// Clock yields the current logical tick. Implementations must be monotonic
// non-decreasing; a request-scoped override in ctx takes precedence so every
// comparison within one operation sees the same tick.
type Clock interface {
	Now(ctx context.Context) id.Tick
}

// EventSink receives audit events. Appends are fire-and-forget from the
// engine's perspective: a sink failure never fails the enclosing operation.
type EventSink interface {
	Emit(ctx context.Context, event models.Event) error
}
