// Package swapper implements the generic swap execution core: pull input
// tokens, run an ordered list of whitelisted external calls against custodied
// funds, and prove through balance diffs that no value leaked. Every bridge
// facet runs a thin wrapper of this before handing funds to a bridge.
package swapper

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/fees"
)

var (
	// ErrTargetNotWhitelisted is returned when a swap leg names a target,
	// spender or method the registry does not allow.
	ErrTargetNotWhitelisted = errors.New("target not whitelisted")

	// ErrSourceBalanceDecreased is returned when the router's holdings of the
	// input token net-decreased across a swap. This is a bug or an exploit
	// attempt and always aborts.
	ErrSourceBalanceDecreased = errors.New("source token balance decreased")

	// ErrOutputBelowMinimum is returned when the measured output is under the
	// request's slippage floor.
	ErrOutputBelowMinimum = errors.New("output amount below minimum expected")

	// ErrInsufficientValue is returned when a native-input swap was started
	// with less attached value than it needs.
	ErrInsufficientValue = errors.New("insufficient attached native value")
)

// SwapRequest describes one swap leg before bridging, or a standalone swap.
// Constructed off-chain per transaction, consumed once, never persisted.
type SwapRequest struct {
	RequestID []byte

	FromToken common.Address
	ToToken   common.Address

	AmountIn              *big.Int
	MinimumAmountExpected *big.Int

	// Fees must sum exactly to TotalFee; that equality is a declared
	// invariant checked up front, not a derived value.
	Fees     []fees.AffiliateFee
	TotalFee *big.Int

	// FeeFromInputToken selects whether fees are taken from the input token
	// before the swap or from the output token after it.
	FeeFromInputToken bool

	DAppTag  uint16
	DAppName string
}

// Call is one leg of a swap: an external call to a whitelisted target.
// Legs execute strictly in array order; each leg's output token balance is
// snapshotted before the run and diffed afterwards.
type Call struct {
	Spender common.Address
	Target  common.Address

	SwapFromToken common.Address
	SwapToToken   common.Address

	// NeedsTransferFromUser pulls Amount of SwapFromToken from the caller
	// before this leg runs, for legs whose input the initial pull did not
	// cover.
	NeedsTransferFromUser bool

	Amount   *big.Int
	CallData []byte
}

// BridgeRequest is the post-swap bridging envelope: the fee breakdown is
// applied and the remainder is what a bridge facet actually sends.
type BridgeRequest struct {
	RequestID []byte
	Token     common.Address
	Amount    *big.Int

	Fees     []fees.AffiliateFee
	TotalFee *big.Int

	DAppTag  uint16
	DAppName string
}
