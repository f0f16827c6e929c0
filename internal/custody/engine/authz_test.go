package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"custodia/internal/custody/clock"
	"custodia/internal/custody/models"
	"custodia/internal/custody/ports/mocks"
	"custodia/internal/custody/verifier"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func TestAuthorizePerOperation(t *testing.T) {
	e := &Engine{cfg: testConfig()}
	c := &models.Container{
		ID:          1,
		Originator:  alice,
		Destination: bob,
		Status:      models.StatusPending,
	}

	tests := []struct {
		op      operation
		caller  id.AccountID
		allowed bool
	}{
		{opAcknowledge, bob, true},
		{opAcknowledge, alice, false},
		{opAcknowledge, overseerAcct, false},

		{opConfirm, alice, true},
		{opConfirm, bob, true},
		{opConfirm, overseerAcct, false},

		{opRelease, alice, true},
		{opRelease, bob, true},
		{opRelease, overseerAcct, true},
		{opRelease, carol, false},

		{opFinalize, alice, true},
		{opFinalize, bob, false},
		{opFinalize, overseerAcct, true},

		{opAbort, alice, true},
		{opAbort, bob, false},
		{opAbort, overseerAcct, false},

		{opRevert, overseerAcct, true},
		{opRevert, alice, false},

		{opReclaim, alice, true},
		{opReclaim, bob, false},
		{opReclaim, overseerAcct, true},

		{opDispute, alice, true},
		{opDispute, bob, true},
		{opDispute, carol, false},

		{opResolve, overseerAcct, true},
		{opResolve, alice, false},

		{opTransfer, alice, true},
		{opTransfer, bob, false},
		{opTransfer, overseerAcct, true},

		{opRegisterRecoveryAgent, alice, true},
		{opRegisterRecoveryAgent, bob, false},
		{opRegisterMultisig, alice, true},
		{opRegisterMultisig, overseerAcct, false},

		{opRotateCredential, alice, true},
		{opRotateCredential, bob, true},
		{opRotateCredential, overseerAcct, true},
		{opRotateCredential, carol, false},

		{opVerifyProof, carol, true},
		{opVerifyMultisig, carol, true},
	}
	for _, tc := range tests {
		err := e.authorize(tc.op, tc.caller, c)
		if tc.allowed {
			assert.NoError(t, err, "%s by %s", tc.op, tc.caller)
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden),
				"%s by %s should be forbidden, got %v", tc.op, tc.caller, err)
		}
	}
}

func TestAuthorizeRejectsAnonymousCaller(t *testing.T) {
	e := &Engine{cfg: testConfig()}
	c := &models.Container{ID: 1, Originator: alice, Destination: bob}
	err := e.authorize(opRelease, "", c)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRequireStatusTerminalFirst(t *testing.T) {
	c := &models.Container{ID: 7, Status: models.StatusCompleted}
	err := requireStatus(opDispute, c)
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Contains(t, err.Error(), "terminal")
}

func newMockEngine(t *testing.T, reg *mocks.MockRegistry, mover *mocks.MockResourceMover) *Engine {
	t.Helper()
	e, err := New(reg, mover, verifier.New(), clock.NewManual(10), testConfig())
	require.NoError(t, err)
	return e
}

// A failed movement must leave the record untouched: Put is never called.
func TestFinalizeMovementFailureLeavesRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	mover := mocks.NewMockResourceMover(ctrl)
	e := newMockEngine(t, reg, mover)

	c := &models.Container{
		ID: 3, Originator: alice, Destination: bob,
		Asset: gold, Quantity: 1000,
		Status: models.StatusPending, Inception: 10, Termination: 110,
	}
	reg.EXPECT().Get(gomock.Any(), id.ContainerID(3)).Return(c, nil)
	mover.EXPECT().
		Move(gomock.Any(), gold, int64(1000), engineAcct, bob).
		Return(errors.New("ledger unavailable"))

	_, err := e.Finalize(context.Background(), alice, 3, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMovementFailed))
}

// A failed registry write surfaces as internal after the guards passed.
func TestAbortStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	mover := mocks.NewMockResourceMover(ctrl)
	e := newMockEngine(t, reg, mover)

	c := &models.Container{
		ID: 5, Originator: alice, Destination: bob,
		Asset: gold, Quantity: 500,
		Status: models.StatusPending, Inception: 10, Termination: 110,
	}
	reg.EXPECT().Get(gomock.Any(), id.ContainerID(5)).Return(c, nil)
	mover.EXPECT().
		Move(gomock.Any(), gold, int64(500), engineAcct, alice).
		Return(nil)
	reg.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := e.Abort(context.Background(), alice, 5)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

// Allocation failures abort creation before any funds move.
func TestCreateAllocationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	mover := mocks.NewMockResourceMover(ctrl)
	e := newMockEngine(t, reg, mover)

	reg.EXPECT().AllocateID(gomock.Any()).Return(id.ContainerID(0), errors.New("sequence exhausted"))

	_, err := e.Create(context.Background(), alice, models.CreateContainerRequest{
		Destination: bob, Asset: gold, Quantity: 100,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
