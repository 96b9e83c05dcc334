// Package interchain implements the destination-settlement engine: decoding
// the self-describing interchain message a source chain embedded into a
// bridge's payload, executing its destination action against the delivered
// funds, and settling the result to the recipient or dApp.
//
// The defining property of this package is fail-open-to-safety: once a bridge
// has delivered funds, a failing destination action must degrade to "deliver
// the bridged asset as-is", never to a revert that strands funds on an
// intermediate contract.
package interchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ActionType tags the destination action embedded in a message.
type ActionType uint8

const (
	ActionTypeNone ActionType = iota
	ActionTypeUniswapV2
	ActionTypeUniswapV3
	ActionTypeCall
	ActionTypeCurve
)

func (t ActionType) String() string {
	switch t {
	case ActionTypeNone:
		return "no_action"
	case ActionTypeUniswapV2:
		return "uniswap_v2"
	case ActionTypeUniswapV3:
		return "uniswap_v3"
	case ActionTypeCall:
		return "call"
	case ActionTypeCurve:
		return "curve"
	}
	return "unknown"
}

// SubAction is a wrap/unwrap conversion applied before a CALL action or after
// any action. The zero value is the no-op, so a zero Message does nothing
// surprising; the wire encoding orders the values differently and the codec
// translates.
type SubAction uint8

const (
	SubActionNone SubAction = iota
	SubActionWrap
	SubActionUnwrap
)

// Status is the settlement outcome reported to on-chain listeners and dApp
// callbacks alike. It is always set explicitly; no path may leave it at the
// zero value by accident.
type Status uint8

const (
	StatusSucceeded Status = iota
	StatusRefundInSource
	StatusRefundInDestination
	StatusSwapFailedInDestination
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusRefundInSource:
		return "refund_in_source"
	case StatusRefundInDestination:
		return "refund_in_destination"
	case StatusSwapFailedInDestination:
		return "swap_failed_in_destination"
	}
	return "unknown"
}

// Action is the decoded destination action: a sealed sum type replacing the
// wire format's enum-plus-opaque-bytes encoding. Decoding happens once at the
// boundary; a blob that does not match its declared type becomes an
// InvalidAction, which the dispatcher treats as an action failure rather than
// a revert.
type Action interface {
	Type() ActionType
}

// NoAction passes the bridged funds through unchanged.
type NoAction struct{}

func (NoAction) Type() ActionType { return ActionTypeNone }

// UniswapV2 swaps along a V2-style path.
type UniswapV2 struct {
	DexAddress   common.Address
	AmountOutMin *big.Int
	Path         []common.Address
	Deadline     *big.Int
}

func (UniswapV2) Type() ActionType { return ActionTypeUniswapV2 }

// UniswapV3 swaps via exactInput on one of the two incompatible V3 router
// generations; IsRouter2 selects the call shape.
type UniswapV3 struct {
	DexAddress       common.Address
	TokenIn          common.Address
	TokenOut         common.Address
	EncodedPath      []byte
	Deadline         *big.Int
	AmountOutMinimum *big.Int
	IsRouter2        bool
}

func (UniswapV3) Type() ActionType { return ActionTypeUniswapV3 }

// ContractCall is the escape hatch: an arbitrary whitelisted destination
// call. When OverwriteAmount is set, the settled amount is spliced into
// CallData at StartIndexForAmount so the callee receives the actual bridged
// amount rather than an off-chain estimate.
type ContractCall struct {
	TokenIn             common.Address
	Spender             common.Address
	PreAction           SubAction
	Target              common.Address
	OverwriteAmount     bool
	StartIndexForAmount *big.Int
	CallData            []byte
}

func (ContractCall) Type() ActionType { return ActionTypeCall }

// CurveSwap exchanges through a Curve router. Routes uses the 0xeeee…eeee
// alias for the native coin.
type CurveSwap struct {
	Router     common.Address
	Routes     [11]common.Address
	SwapParams [5][5]*big.Int
	Expected   *big.Int
	Pools      [5]common.Address
	ToToken    common.Address
}

func (CurveSwap) Type() ActionType { return ActionTypeCurve }

// InvalidAction records an action blob that failed to decode as its declared
// type. The dispatcher fails closed on it: refund path, no revert.
type InvalidAction struct {
	Declared ActionType
	Err      error
}

func (a InvalidAction) Type() ActionType { return a.Declared }

// Message is the interchain payload decoded on the destination chain.
type Message struct {
	RequestID  []byte
	DstChainID *big.Int

	// BridgeRealOutput marks a bridge that delivers wrapped-native standing
	// in for what should be the native coin.
	BridgeRealOutput bool

	ToToken        common.Address
	OriginalSender common.Address
	Recipient      common.Address

	Action     Action
	PostAction SubAction

	DAppTag            uint16
	DAppMessage        []byte
	DAppSourceContract common.Address
	DAppDestContract   common.Address
}
