package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func TestMemoryStoreAllocatesMonotonically(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.AllocateID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.ContainerID(1), first)

	second, err := s.AllocateID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.ContainerID(2), second)
}

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	allocated, err := s.AllocateID(ctx)
	require.NoError(t, err)

	c := &models.Container{
		ID:          allocated,
		Originator:  "acct-alice",
		Destination: "acct-bob",
		Asset:       "gold",
		Quantity:    1000,
		Status:      models.StatusPending,
		Inception:   10,
		Termination: 110,
	}
	require.NoError(t, s.Put(ctx, c))

	got, err := s.Get(ctx, allocated)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// Reads return copies: mutating the result must not leak into the store.
	got.Status = models.StatusCompleted
	again, err := s.Get(ctx, allocated)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestMemoryStoreRejectsUnallocatedID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Put(ctx, &models.Container{ID: 42, Status: models.StatusPending})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), 7)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
