package events

import (
	"context"
	"sync"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
)

// MemoryStore keeps events per container. Used by tests and dev deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[id.ContainerID][]models.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[id.ContainerID][]models.Event)}
}

func (s *MemoryStore) Append(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ContainerID] = append(s.events[event.ContainerID], event)
	return nil
}

// ListByContainer returns the events recorded for one container, in emission
// order.
func (s *MemoryStore) ListByContainer(_ context.Context, containerID id.ContainerID) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Event{}, s.events[containerID]...), nil
}
