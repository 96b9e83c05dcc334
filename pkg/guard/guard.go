// Package guard provides the transaction-level re-entrancy guard wrapping
// every custody-bearing entry point. Balance snapshots are only sound while
// no nested execution can mutate the same balances, so the swap executor and
// the settlement dispatcher share one guard.
package guard

import (
	"errors"
	"sync/atomic"
)

// ErrReentrantCall is returned when a custody-bearing entry point is entered
// while another one is still running.
var ErrReentrantCall = errors.New("reentrant call")

// Guard is a single acquire/release flag. It rejects rather than queues:
// a nested acquisition is an attack or a bug, never a legitimate wait.
type Guard struct {
	locked atomic.Bool
}

// New creates an unlocked guard.
func New() *Guard {
	return &Guard{}
}

// Acquire takes the guard, returning a release function. The release function
// must be called exactly once, typically via defer.
func (g *Guard) Acquire() (func(), error) {
	if !g.locked.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	return func() { g.locked.Store(false) }, nil
}
