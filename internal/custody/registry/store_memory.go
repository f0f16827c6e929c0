// Package registry provides the container record stores. Both
// implementations satisfy ports.Registry: monotonic id allocation starting at
// 1, ids never reused, reads return copies, writes overwrite whole records.
package registry

import (
	"context"
	"sync"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// MemoryStore is the in-process registry used by tests and single-node
// deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID id.ContainerID
	items  map[id.ContainerID]*models.Container
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		items:  make(map[id.ContainerID]*models.Container),
	}
}

// AllocateID hands out the next container id. Allocated ids are spent even if
// the caller never stores a record under them.
func (s *MemoryStore) AllocateID(_ context.Context) (id.ContainerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allocated := s.nextID
	s.nextID++
	return allocated, nil
}

func (s *MemoryStore) Get(_ context.Context, containerID id.ContainerID) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[containerID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", containerID)
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, c *models.Container) error {
	if c == nil || c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "container with id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID >= s.nextID {
		return dErrors.Newf(dErrors.CodeInvalidInput, "container id %d was never allocated", c.ID)
	}
	s.items[c.ID] = c.Clone()
	return nil
}
