// Package events defines the router's externally indexed record: every swap,
// fee disbursement, bridge initiation, bridge completion and dApp callback
// produces one event. Off-chain trackers consume these, so the field sets are
// part of the public contract.
package events

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is implemented by every emitted event type.
type Event interface {
	EventType() string
}

// Sink receives emitted events. Emission failures are logged by sinks
// themselves; emitters never fail a settlement because a sink misbehaved.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SwapCompleted is emitted after a successful swap execution.
type SwapCompleted struct {
	RequestID  []byte
	FromToken  common.Address
	ToToken    common.Address
	AmountIn   *big.Int
	Output     *big.Int
	Receiver   common.Address
	DAppName   string
	DAppTag    uint16
}

func (SwapCompleted) EventType() string { return "swap_completed" }

// FeeApplied is emitted once per fee recipient.
type FeeApplied struct {
	Token     common.Address
	Recipient common.Address
	Amount    *big.Int
	FeeType   string
	DAppTag   uint16
}

func (FeeApplied) EventType() string { return "fee_applied" }

// BridgeInitiated is emitted when a bridge envelope leaves the source chain
// after fee collection.
type BridgeInitiated struct {
	RequestID []byte
	Token     common.Address
	Amount    *big.Int
	DAppName  string
	DAppTag   uint16
}

func (BridgeInitiated) EventType() string { return "bridge_initiated" }

// BridgeCompleted is emitted after destination settlement, whatever its
// status; it is the single source of truth for the operation outcome.
type BridgeCompleted struct {
	RequestID      []byte
	Token          common.Address
	OriginalSender common.Address
	Recipient      common.Address
	Amount         *big.Int
	Status         string
	DAppTag        uint16
}

func (BridgeCompleted) EventType() string { return "bridge_completed" }

// DAppCallbackResult records the outcome of a dApp message callback,
// separately from the settlement status: the funds were already transferred
// when the callback ran.
type DAppCallbackResult struct {
	RequestID []byte
	DApp      common.Address
	OK        bool
	Reason    string
}

func (DAppCallbackResult) EventType() string { return "dapp_callback_result" }
