package engine

import (
	"sync"

	id "custodia/pkg/domain"
)

// keyedMutex serializes read-modify-write per container id within this
// process. Cross-process linearization is the durable substrate's contract.
// Entries are never removed; one idle mutex per container seen is cheaper
// than refcounting for the lifetime of a service process.
type keyedMutex struct {
	mu sync.Map // id.ContainerID -> *sync.Mutex
}

// lock acquires the mutex for the id and returns its unlock function.
func (k *keyedMutex) lock(containerID id.ContainerID) func() {
	v, _ := k.mu.LoadOrStore(containerID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
