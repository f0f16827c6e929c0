package engine

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/custody/clock"
	"custodia/internal/custody/ledger"
	"custodia/internal/custody/models"
	"custodia/internal/custody/registry"
	"custodia/internal/custody/verifier"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

const (
	engineAcct   = id.AccountID("acct-engine")
	overseerAcct = id.AccountID("acct-overseer")
	alice        = id.AccountID("acct-alice")
	bob          = id.AccountID("acct-bob")
	carol        = id.AccountID("acct-carol")

	gold = id.AssetID("gold")
)

func testConfig() Config {
	return Config{
		EngineAccount:    engineAcct,
		OverseerAccount:  overseerAcct,
		DefaultLifespan:  100,
		CoolingPeriod:    50,
		LockdownWindow:   10,
		ExtensionCap:     40,
		ConfirmThreshold: 100,
	}
}

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *recordingSink) Emit(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) actions() []models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Action, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

type harness struct {
	engine *Engine
	ledger *ledger.Memory
	clock  *clock.Manual
	sink   *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := ledger.NewMemory()
	l.Credit(alice, gold, 1_000_000)
	l.Credit(bob, gold, 1_000_000)

	c := clock.NewManual(10)
	sink := &recordingSink{}
	e, err := New(registry.NewMemoryStore(), l, verifier.New(), c, testConfig(),
		WithEventSink(sink))
	require.NoError(t, err)
	return &harness{engine: e, ledger: l, clock: c, sink: sink}
}

// create funds a standard container: alice -> bob, 1000 gold, at tick 10.
func (h *harness) create(t *testing.T, quantity int64) *models.Container {
	t.Helper()
	c, err := h.engine.Create(context.Background(), alice, models.CreateContainerRequest{
		Destination: bob,
		Asset:       gold,
		Quantity:    quantity,
	})
	require.NoError(t, err)
	return c
}

func TestCreateDepositsAndAllocatesIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.create(t, 1000)
	assert.Equal(t, id.ContainerID(1), first.ID)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, id.Tick(10), first.Inception)
	assert.Equal(t, id.Tick(110), first.Termination)
	assert.Equal(t, int64(1000), h.ledger.Balance(engineAcct, gold))
	assert.Equal(t, int64(999_000), h.ledger.Balance(alice, gold))

	second := h.create(t, 500)
	assert.Equal(t, id.ContainerID(2), second.ID)

	got, err := h.engine.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = h.engine.Get(ctx, 99)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCreateRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.Create(ctx, alice, models.CreateContainerRequest{Destination: bob, Asset: gold, Quantity: 0})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = h.engine.Create(ctx, alice, models.CreateContainerRequest{Destination: alice, Asset: gold, Quantity: 10})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = h.engine.Create(ctx, alice, models.CreateContainerRequest{Destination: engineAcct, Asset: gold, Quantity: 10})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// Insufficient balance: the deposit fails and no record exists.
	_, err = h.engine.Create(ctx, carol, models.CreateContainerRequest{Destination: bob, Asset: gold, Quantity: 10})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMovementFailed))
	_, err = h.engine.Get(ctx, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Scenario: deposit 10000, finalize pays the destination in full, and the
// record refuses any further transition.
func TestFinalizeHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 10000)
	require.Equal(t, id.ContainerID(1), c.ID)

	c, err := h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, c.Status)
	assert.Equal(t, int64(0), h.ledger.Balance(engineAcct, gold))
	assert.Equal(t, int64(1_010_000), h.ledger.Balance(bob, gold))

	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = h.engine.Abort(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	assert.Equal(t, []models.Action{models.ActionCreated, models.ActionFinalized}, h.sink.actions())
}

// Scenario: reclaim is refused one tick before termination and refunds one
// tick after it.
func TestReclaimAroundTermination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000) // termination at tick 110

	h.clock.Set(109)
	_, err := h.engine.Reclaim(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotYetEligible))

	h.clock.Set(110)
	_, err = h.engine.Reclaim(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotYetEligible))

	h.clock.Set(111)
	c, err = h.engine.Reclaim(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutdated, c.Status)
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(alice, gold))
	assert.Equal(t, int64(0), h.ledger.Balance(engineAcct, gold))
}

// Scenario: dispute then resolve at 30% of 1000 pays 300 back to the
// originator and 700 to the destination; a second resolution is refused.
func TestDisputeAndResolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	c, err := h.engine.Dispute(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, c.Status)

	// Only the overseer can resolve.
	_, err = h.engine.Resolve(ctx, alice, c.ID, models.ResolveRequest{Percentage: 30})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	c, err = h.engine.Resolve(ctx, overseerAcct, c.ID, models.ResolveRequest{Percentage: 30})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, c.Status)
	assert.Equal(t, int64(999_300), h.ledger.Balance(alice, gold))
	assert.Equal(t, int64(1_000_700), h.ledger.Balance(bob, gold))
	assert.Equal(t, int64(0), h.ledger.Balance(engineAcct, gold))

	_, err = h.engine.Resolve(ctx, overseerAcct, c.ID, models.ResolveRequest{Percentage: 30})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestReleaseSplit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	c, err := h.engine.Release(ctx, bob, c.ID, models.ReleaseRequest{Percentage: 25})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, c.Status)
	assert.Equal(t, int64(999_250), h.ledger.Balance(alice, gold))
	assert.Equal(t, int64(1_000_750), h.ledger.Balance(bob, gold))
	assert.Equal(t, int64(0), h.ledger.Balance(engineAcct, gold))
}

func TestReleaseRejectedPastTermination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	h.clock.Set(111)

	_, err := h.engine.Release(ctx, alice, c.ID, models.ReleaseRequest{Percentage: 50})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	_, err = h.engine.Abort(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	// The deposit is still intact and reclaimable.
	c, err = h.engine.Reclaim(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutdated, c.Status)
}

func TestAcknowledgeFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	_, err := h.engine.Acknowledge(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	c, err = h.engine.Acknowledge(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, c.Status)

	_, err = h.engine.Acknowledge(ctx, bob, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	// Acknowledged records cannot be finalized directly.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	// But they can still be disputed, extended, or reclaimed.
	_, err = h.engine.Dispute(ctx, alice, c.ID)
	require.NoError(t, err)
}

func TestConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	small := h.create(t, 50) // below threshold 100
	_, err := h.engine.Confirm(ctx, alice, small.ID, models.ConfirmRequest{ProofExpiry: 20})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	big := h.create(t, 1000)
	_, err = h.engine.Confirm(ctx, alice, big.ID, models.ConfirmRequest{ProofExpiry: 10})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	c, err := h.engine.Confirm(ctx, bob, big.ID, models.ConfirmRequest{ProofExpiry: 20})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, c.Status)

	// Confirmed records can still be finalized.
	c, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, c.Status)
}

func TestAbortAndRevert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	_, err := h.engine.Abort(ctx, bob, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	c, err = h.engine.Abort(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAborted, c.Status)
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(alice, gold))

	c2 := h.create(t, 500)
	_, err = h.engine.Revert(ctx, alice, c2.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	c2, err = h.engine.Revert(ctx, overseerAcct, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReverted, c2.Status)
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(alice, gold))
}

func TestLockdownAndRecover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	c, reviewBy, err := h.engine.Lockdown(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, c.Status)
	assert.Equal(t, id.Tick(20), reviewBy)

	// Locked containers refuse release and finalize.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	// Recovery before the cooling period is not yet eligible.
	_, err = h.engine.Recover(ctx, overseerAcct, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotYetEligible))

	h.clock.Set(60) // inception 10 + cooling 50
	c, err = h.engine.Recover(ctx, overseerAcct, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecovered, c.Status)
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(alice, gold))
}

func TestRecoveryAgent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	// No agent registered: a stranger cannot recover.
	h.clock.Set(60)
	_, err := h.engine.Recover(ctx, carol, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	h.clock.Set(10)
	_, err = h.engine.RegisterRecoveryAgent(ctx, bob, c.ID, models.RecoveryAgentRequest{Agent: carol})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = h.engine.RegisterRecoveryAgent(ctx, alice, c.ID, models.RecoveryAgentRequest{Agent: bob})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	c, err = h.engine.RegisterRecoveryAgent(ctx, alice, c.ID, models.RecoveryAgentRequest{Agent: carol})
	require.NoError(t, err)
	assert.Equal(t, carol, c.RecoveryAgent)

	_, err = h.engine.Recover(ctx, carol, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotYetEligible))

	h.clock.Set(60)
	c, err = h.engine.Recover(ctx, carol, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecovered, c.Status)
}

func TestExtend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	_, err := h.engine.Extend(ctx, alice, c.ID, models.ExtendRequest{Delta: 0})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = h.engine.Extend(ctx, alice, c.ID, models.ExtendRequest{Delta: 41})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	c, err = h.engine.Extend(ctx, bob, c.ID, models.ExtendRequest{Delta: 40})
	require.NoError(t, err)
	assert.Equal(t, id.Tick(150), c.Termination)

	c, err = h.engine.Extend(ctx, overseerAcct, c.ID, models.ExtendRequest{Delta: 10})
	require.NoError(t, err)
	assert.Equal(t, id.Tick(160), c.Termination)
}

func TestExtendCannotReviveLapsedContainer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000) // termination 110
	h.clock.Set(111)

	// Past termination the deposit belongs to the originator's reclaim path;
	// the destination must not be able to extend and then drain it.
	_, err := h.engine.Extend(ctx, bob, c.ID, models.ExtendRequest{Delta: 10})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
	_, err = h.engine.TransferOriginator(ctx, alice, c.ID, models.TransferRequest{NewOriginator: carol})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
	_, err = h.engine.Release(ctx, bob, c.ID, models.ReleaseRequest{Percentage: 0})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	c, err = h.engine.Reclaim(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutdated, c.Status)
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(alice, gold))
	assert.Equal(t, int64(1_000_000), h.ledger.Balance(bob, gold))
}

func TestSuspendAndResume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	c, err := h.engine.Suspend(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, c.Status)

	// Suspended records refuse everything except resume.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = h.engine.Dispute(ctx, bob, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = h.engine.Resume(ctx, carol, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	c, err = h.engine.Resume(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
}

func TestTransferOriginator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	_, err := h.engine.TransferOriginator(ctx, bob, c.ID, models.TransferRequest{NewOriginator: carol})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = h.engine.TransferOriginator(ctx, alice, c.ID, models.TransferRequest{NewOriginator: bob})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	c, err = h.engine.TransferOriginator(ctx, alice, c.ID, models.TransferRequest{NewOriginator: carol})
	require.NoError(t, err)
	assert.Equal(t, carol, c.Originator)

	// Refunds now pay the new originator.
	c, err = h.engine.Abort(ctx, carol, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAborted, c.Status)
	assert.Equal(t, int64(1000), h.ledger.Balance(carol, gold))
	assert.Equal(t, int64(999_000), h.ledger.Balance(alice, gold))
}

func multisigKeys(t *testing.T, n int) ([]ed25519.PrivateKey, []id.AccountID) {
	t.Helper()
	keys := make([]ed25519.PrivateKey, n)
	accounts := make([]id.AccountID, n)
	for i := range keys {
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
		accounts[i] = verifier.AccountFromPublicKey(pub)
	}
	return keys, accounts
}

func TestMultisigGatesFinalize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	keys, signers := multisigKeys(t, 3)
	c := h.create(t, 1000)

	c, err := h.engine.RegisterMultisigPolicy(ctx, alice, c.ID, models.MultisigPolicyRequest{
		Signers:   signers,
		Threshold: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, c.Multisig)

	// No approvals at all.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	digest := verifier.OperationDigest("finalize", c.ID, 0, c.Quantity)

	// One approval is below the threshold.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{
		Approvals: []models.Approval{{Signature: verifier.SignApproval(keys[0], digest)}},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// The same signer twice does not count as two.
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{
		Approvals: []models.Approval{
			{Signature: verifier.SignApproval(keys[0], digest)},
			{Signature: verifier.SignApproval(keys[0], digest)},
		},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// A signature over a different operation's digest does not verify.
	releaseDigest := verifier.OperationDigest("release", c.ID, 50, c.Quantity)
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{
		Approvals: []models.Approval{
			{Signature: verifier.SignApproval(keys[0], digest)},
			{Signature: verifier.SignApproval(keys[1], releaseDigest)},
		},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRecoveryFailed))

	// An unregistered signer is rejected even with a valid signature.
	_, strangerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{
		Approvals: []models.Approval{
			{Signature: verifier.SignApproval(keys[0], digest)},
			{Signature: verifier.SignApproval(strangerPriv, digest)},
		},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// Two distinct registered signers clear the threshold.
	c, err = h.engine.Finalize(ctx, alice, c.ID, models.FinalizeRequest{
		Approvals: []models.Approval{
			{Signature: verifier.SignApproval(keys[0], digest)},
			{Signature: verifier.SignApproval(keys[2], digest)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, c.Status)
}

func TestMultisigDoesNotGateRefunds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, signers := multisigKeys(t, 2)
	c := h.create(t, 1000)
	_, err := h.engine.RegisterMultisigPolicy(ctx, alice, c.ID, models.MultisigPolicyRequest{
		Signers:   signers,
		Threshold: 2,
	})
	require.NoError(t, err)

	// Abort pays the originator back; no approvals needed.
	c, err = h.engine.Abort(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAborted, c.Status)
}

func TestVerifyProofAndMultisig(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	keys, signers := multisigKeys(t, 2)
	c := h.create(t, 1000)

	digest := verifier.OperationDigest("finalize", c.ID, 0, c.Quantity)
	signer, err := h.engine.VerifyProof(ctx, alice, c.ID, models.VerifyProofRequest{
		Digest:    digest,
		Signature: verifier.SignApproval(keys[0], digest),
	})
	require.NoError(t, err)
	assert.Equal(t, signers[0], signer)

	// No policy registered yet.
	_, err = h.engine.VerifyMultisig(ctx, alice, c.ID, models.VerifyMultisigRequest{
		Digest:     digest,
		Signatures: [][]byte{verifier.SignApproval(keys[0], digest)},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = h.engine.RegisterMultisigPolicy(ctx, alice, c.ID, models.MultisigPolicyRequest{
		Signers:   signers,
		Threshold: 2,
	})
	require.NoError(t, err)

	got, err := h.engine.VerifyMultisig(ctx, alice, c.ID, models.VerifyMultisigRequest{
		Digest: digest,
		Signatures: [][]byte{
			verifier.SignApproval(keys[0], digest),
			verifier.SignApproval(keys[1], digest),
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, signers, got)
}

func TestRotateCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)

	err := h.engine.RotateCredential(ctx, carol, c.ID, models.RotateCredentialRequest{CredentialDigest: []byte{1, 2, 3}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	err = h.engine.RotateCredential(ctx, bob, c.ID, models.RotateCredentialRequest{CredentialDigest: []byte{1, 2, 3}})
	require.NoError(t, err)

	// The record itself is untouched.
	got, err := h.engine.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Contains(t, h.sink.actions(), models.ActionCredentialRotated)
}

func TestTerminalStatesRefuseEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, 1000)
	_, err := h.engine.Abort(ctx, alice, c.ID)
	require.NoError(t, err)

	_, err = h.engine.Acknowledge(ctx, bob, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = h.engine.Dispute(ctx, bob, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = h.engine.Suspend(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, _, err = h.engine.Lockdown(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = h.engine.Extend(ctx, alice, c.ID, models.ExtendRequest{Delta: 1})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	h.clock.Set(200)
	_, err = h.engine.Reclaim(ctx, alice, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = h.engine.Recover(ctx, overseerAcct, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

// Conservation: whatever sequence of operations runs, total gold across all
// accounts never changes.
func TestConservationAcrossOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	total := func() int64 {
		return h.ledger.Balance(alice, gold) + h.ledger.Balance(bob, gold) +
			h.ledger.Balance(carol, gold) + h.ledger.Balance(engineAcct, gold) +
			h.ledger.Balance(overseerAcct, gold)
	}
	before := total()

	a := h.create(t, 777)
	b := h.create(t, 999)
	c := h.create(t, 12345)

	_, err := h.engine.Release(ctx, alice, a.ID, models.ReleaseRequest{Percentage: 33})
	require.NoError(t, err)
	_, err = h.engine.Dispute(ctx, bob, b.ID)
	require.NoError(t, err)
	_, err = h.engine.Resolve(ctx, overseerAcct, b.ID, models.ResolveRequest{Percentage: 61})
	require.NoError(t, err)
	_, err = h.engine.Abort(ctx, alice, c.ID)
	require.NoError(t, err)

	assert.Equal(t, before, total())
	assert.Equal(t, int64(0), h.ledger.Balance(engineAcct, gold))
}
