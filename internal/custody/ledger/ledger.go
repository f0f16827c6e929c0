// Package ledger is an in-process balance sheet implementing the resource
// mover port. It rejects overdrafts, which is exactly what the custody engine
// relies on to keep disbursements conservative.
package ledger

import (
	"context"
	"sync"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type key struct {
	account id.AccountID
	asset   id.AssetID
}

// Memory holds balances per (account, asset). Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[key]int64
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[key]int64)}
}

// Credit seeds an account. Intended for genesis and tests.
func (l *Memory) Credit(account id.AccountID, asset id.AssetID, quantity int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[key{account, asset}] += quantity
}

// Balance reports the current holding.
func (l *Memory) Balance(account id.AccountID, asset id.AssetID) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[key{account, asset}]
}

// Move transfers quantity between accounts atomically, failing without any
// change when the source balance is insufficient.
func (l *Memory) Move(_ context.Context, asset id.AssetID, quantity int64, from, to id.AccountID) error {
	if quantity <= 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "movement quantity must be positive, got %d", quantity)
	}
	if from.IsNil() || to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "movement requires both accounts")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	src := key{from, asset}
	if l.balances[src] < quantity {
		return dErrors.Newf(dErrors.CodeMovementFailed,
			"account %s holds %d %s, cannot move %d", from, l.balances[src], asset, quantity)
	}
	l.balances[src] -= quantity
	l.balances[key{to, asset}] += quantity
	return nil
}
