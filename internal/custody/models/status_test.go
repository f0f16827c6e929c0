package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
)

func TestStatusTerminality(t *testing.T) {
	active := []Status{StatusPending, StatusAcknowledged, StatusConfirmed,
		StatusDisputed, StatusLocked, StatusSuspended}
	terminal := []Status{StatusCompleted, StatusAborted, StatusReverted,
		StatusResolved, StatusOutdated, StatusRecovered}

	for _, s := range active {
		assert.True(t, s.IsValid(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range terminal {
		assert.True(t, s.IsValid(), s)
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	_, err = ParseStatus("melted")
	assert.Error(t, err)
}

func accounts(names ...string) []id.AccountID {
	out := make([]id.AccountID, len(names))
	for i, n := range names {
		out[i] = id.AccountID(n)
	}
	return out
}

func TestMultisigPolicyValidate(t *testing.T) {
	valid := &MultisigPolicy{Signers: accounts("a", "b", "c"), Threshold: 2}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&MultisigPolicy{Threshold: 1}).Validate())
	assert.Error(t, (&MultisigPolicy{Signers: accounts("a", "a"), Threshold: 1}).Validate())
	assert.Error(t, (&MultisigPolicy{Signers: accounts("a", ""), Threshold: 1}).Validate())
	assert.Error(t, (&MultisigPolicy{Signers: accounts("a", "b"), Threshold: 0}).Validate())
	assert.Error(t, (&MultisigPolicy{Signers: accounts("a", "b"), Threshold: 3}).Validate())
}

func TestContainerCloneIsDeep(t *testing.T) {
	c := &Container{
		ID:       1,
		Multisig: &MultisigPolicy{Signers: accounts("a", "b"), Threshold: 2},
	}
	dup := c.Clone()
	dup.Multisig.Signers[0] = "z"
	assert.Equal(t, id.AccountID("a"), c.Multisig.Signers[0])
}

func TestContainerIsParty(t *testing.T) {
	c := &Container{Originator: "acct-alice", Destination: "acct-bob"}
	assert.True(t, c.IsParty("acct-alice"))
	assert.True(t, c.IsParty("acct-bob"))
	assert.False(t, c.IsParty("acct-carol"))
}
