// Package ledger is the balance-diff measurement primitive. Every "how much
// did that call actually produce" answer in the router is a before/after
// balance comparison on the router's own account, never a callee-reported
// return value: external tokens and DEXes may charge transfer fees, round, or
// simply lie.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/evm"
)

// Ledger reads the bound account's holdings through an evm.Host.
type Ledger struct {
	host evm.Host
}

// New binds a ledger to a host.
func New(host evm.Host) *Ledger {
	return &Ledger{host: host}
}

// Balance returns the router's current holdings of token.
func (l *Ledger) Balance(token common.Address) (*big.Int, error) {
	b, err := l.host.BalanceOf(token, l.host.Self())
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", token.Hex(), err)
	}
	return b, nil
}

// Snapshot is a token balance captured before an operation.
type Snapshot struct {
	Token  common.Address
	Before *big.Int
}

// Snapshot captures the current balance of token.
func (l *Ledger) Snapshot(token common.Address) (Snapshot, error) {
	b, err := l.Balance(token)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Token: token, Before: b}, nil
}

// Diff returns current balance minus the snapshot. Negative diffs are
// reported as negative; callers decide whether that is a violation.
func (l *Ledger) Diff(s Snapshot) (*big.Int, error) {
	after, err := l.Balance(s.Token)
	if err != nil {
		return nil, err
	}
	return after.Sub(after, s.Before), nil
}

// Measure snapshots token, runs fn, and returns how much of token the
// operation produced. When fn fails the error is returned and the diff is nil.
func (l *Ledger) Measure(token common.Address, fn func() error) (*big.Int, error) {
	snap, err := l.Snapshot(token)
	if err != nil {
		return nil, err
	}
	if err := fn(); err != nil {
		return nil, err
	}
	return l.Diff(snap)
}
