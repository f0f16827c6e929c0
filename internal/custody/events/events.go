// Package events fans committed custody transitions out to an audit store.
// Emission is fire-and-forget from the engine's point of view: a full buffer
// drops the event rather than stalling a transition.
package events

import (
	"context"

	"custodia/internal/custody/models"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event models.Event) error
}
