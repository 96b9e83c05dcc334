// Package fees validates declared fee breakdowns and disburses fee shares to
// affiliate recipients. Validation and disbursement are separate on purpose:
// disbursement moves funds and must only ever run on a validated breakdown.
package fees

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm"
)

// ErrInvalidFeeTotal is returned when a fee breakdown does not add up to its
// declared total, or carries a zero amount or null recipient.
var ErrInvalidFeeTotal = errors.New("invalid fee breakdown total")

// AffiliateFee is one share of the declared fee breakdown.
type AffiliateFee struct {
	Recipient common.Address
	Amount    *big.Int
	FeeType   string
}

// ValidateBreakdown checks that every entry has a non-zero amount and
// non-null recipient and that the entries sum exactly to declaredTotal. The
// total is an invariant the caller declares, never a value derived here.
func ValidateBreakdown(fs []AffiliateFee, declaredTotal *big.Int) error {
	sum := new(big.Int)
	for i, f := range fs {
		if f.Amount == nil || f.Amount.Sign() <= 0 {
			return fmt.Errorf("fee entry %d has no amount: %w", i, ErrInvalidFeeTotal)
		}
		if f.Recipient == (common.Address{}) {
			return fmt.Errorf("fee entry %d has no recipient: %w", i, ErrInvalidFeeTotal)
		}
		sum.Add(sum, f.Amount)
	}
	if declaredTotal == nil {
		declaredTotal = new(big.Int)
	}
	if sum.Cmp(declaredTotal) != 0 {
		return fmt.Errorf("fee sum %s != declared total %s: %w", sum, declaredTotal, ErrInvalidFeeTotal)
	}
	return nil
}

// Accountant moves fee shares and emits one FeeApplied event per recipient.
type Accountant struct {
	host evm.Host
	sink events.Sink
}

// NewAccountant creates a fee accountant over host.
func NewAccountant(host evm.Host, sink events.Sink) *Accountant {
	return &Accountant{host: host, sink: sink}
}

// Disburse transfers each share of token from the router's own holdings to
// its recipient. Callers must have validated the breakdown first.
func (a *Accountant) Disburse(ctx context.Context, token common.Address, fs []AffiliateFee, dAppTag uint16) error {
	for _, f := range fs {
		if err := a.host.Transfer(token, f.Recipient, f.Amount); err != nil {
			return fmt.Errorf("disburse %s fee to %s: %w", f.FeeType, f.Recipient.Hex(), err)
		}
		a.sink.Emit(ctx, events.FeeApplied{
			Token:     token,
			Recipient: f.Recipient,
			Amount:    new(big.Int).Set(f.Amount),
			FeeType:   f.FeeType,
			DAppTag:   dAppTag,
		})
	}
	return nil
}

// DisburseFromPayer pulls each share directly from payer to its recipient,
// skipping the intermediate custody hop. End state is identical to Disburse.
// Not valid for the native token: there is no pull path for native value.
func (a *Accountant) DisburseFromPayer(ctx context.Context, token common.Address, fs []AffiliateFee, payer common.Address, dAppTag uint16) error {
	if evm.IsNative(token) {
		return errors.New("native fees cannot be pulled from payer")
	}
	for _, f := range fs {
		if err := a.host.TransferFrom(token, payer, f.Recipient, f.Amount); err != nil {
			return fmt.Errorf("pull %s fee from payer to %s: %w", f.FeeType, f.Recipient.Hex(), err)
		}
		a.sink.Emit(ctx, events.FeeApplied{
			Token:     token,
			Recipient: f.Recipient,
			Amount:    new(big.Int).Set(f.Amount),
			FeeType:   f.FeeType,
			DAppTag:   dAppTag,
		})
	}
	return nil
}

// Total sums a breakdown. Used by callers that need the full pull amount.
func Total(fs []AffiliateFee) *big.Int {
	sum := new(big.Int)
	for _, f := range fs {
		if f.Amount != nil {
			sum.Add(sum, f.Amount)
		}
	}
	return sum
}
