package swapper

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/internal/metrics"
	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/fees"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/ledger"
	"github.com/rango-exchange/router-middleware/pkg/registry"
)

// Executor runs swap requests against the router's custody.
type Executor struct {
	host     evm.Host
	ledger   *ledger.Ledger
	registry registry.Registry
	fees     *fees.Accountant
	guard    *guard.Guard
	sink     events.Sink
	logger   *zap.Logger
}

// NewExecutor wires a swap executor. The guard must be the same instance the
// settlement dispatcher uses so the whole custody-bearing call tree shares
// one re-entrancy flag.
func NewExecutor(
	host evm.Host,
	reg registry.Registry,
	accountant *fees.Accountant,
	g *guard.Guard,
	sink events.Sink,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		host:     host,
		ledger:   ledger.New(host),
		registry: reg,
		fees:     accountant,
		guard:    g,
		sink:     sink,
		logger:   logger,
	}
}

// RunSwap executes the ordered swap legs for req and returns the raw return
// data of each leg plus the measured output amount, which stays in the
// router's custody for the caller (typically a bridge facet) to consume.
//
// attachedValue is the native value the caller delivered along with the
// request; extraNativeReserved is native value the caller wants kept aside
// (a bridge's native fee) and excluded from the leak check.
func (e *Executor) RunSwap(
	ctx context.Context,
	caller common.Address,
	attachedValue *big.Int,
	req SwapRequest,
	calls []Call,
	extraNativeReserved *big.Int,
) (results [][]byte, output *big.Int, err error) {
	release, err := e.guard.Acquire()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	if attachedValue == nil {
		attachedValue = new(big.Int)
	}
	if extraNativeReserved == nil {
		extraNativeReserved = new(big.Int)
	}

	if err := fees.ValidateBreakdown(req.Fees, req.TotalFee); err != nil {
		return nil, nil, err
	}

	toSnap, err := e.ledger.Snapshot(req.ToToken)
	if err != nil {
		return nil, nil, err
	}
	fromSnap, err := e.ledger.Snapshot(req.FromToken)
	if err != nil {
		return nil, nil, err
	}
	interSnaps, err := e.snapshotIntermediates(req, calls)
	if err != nil {
		return nil, nil, err
	}

	if err := e.pullInput(caller, attachedValue, req, calls); err != nil {
		return nil, nil, err
	}

	feeToken := req.FromToken
	if req.FeeFromInputToken {
		if err := e.fees.Disburse(ctx, feeToken, req.Fees, req.DAppTag); err != nil {
			return nil, nil, err
		}
	}

	results = make([][]byte, 0, len(calls))
	for i, call := range calls {
		ret, err := e.executeLeg(call)
		results = append(results, ret)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues("swapper", "leg_failed").Inc()
			return results, nil, fmt.Errorf("swap leg %d via %s: %w", i, call.Target.Hex(), err)
		}
		metrics.SwapLegsExecuted.Inc()
	}

	if err := e.sweepIntermediates(caller, req, interSnaps); err != nil {
		return results, nil, err
	}

	if !req.FeeFromInputToken {
		if err := e.fees.Disburse(ctx, req.ToToken, req.Fees, req.DAppTag); err != nil {
			return results, nil, err
		}
	}

	if err := e.checkSourceBalance(caller, attachedValue, extraNativeReserved, req, fromSnap); err != nil {
		return results, nil, err
	}

	output, err = e.ledger.Diff(toSnap)
	if err != nil {
		return results, nil, err
	}
	if output.Cmp(req.MinimumAmountExpected) < 0 {
		return results, nil, fmt.Errorf("got %s, expected at least %s: %w",
			output, req.MinimumAmountExpected, ErrOutputBelowMinimum)
	}

	e.sink.Emit(ctx, events.SwapCompleted{
		RequestID: req.RequestID,
		FromToken: req.FromToken,
		ToToken:   req.ToToken,
		AmountIn:  new(big.Int).Set(req.AmountIn),
		Output:    new(big.Int).Set(output),
		Receiver:  caller,
		DAppName:  req.DAppName,
		DAppTag:   req.DAppTag,
	})
	e.logger.Debug("Swap executed",
		zap.Int("legs", len(calls)),
		zap.String("output", output.String()))
	return results, output, nil
}

// InitiateBridge applies the fee breakdown of a bridge envelope and returns
// the net amount a bridge facet should actually send. The token and amount
// are expected to already sit in the router's custody.
func (e *Executor) InitiateBridge(ctx context.Context, req BridgeRequest) (*big.Int, error) {
	release, err := e.guard.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := fees.ValidateBreakdown(req.Fees, req.TotalFee); err != nil {
		return nil, err
	}
	total := req.TotalFee
	if total == nil {
		total = new(big.Int)
	}
	net := new(big.Int).Sub(req.Amount, total)
	if net.Sign() <= 0 {
		return nil, fmt.Errorf("fees %s consume the whole bridge amount %s: %w",
			total, req.Amount, fees.ErrInvalidFeeTotal)
	}
	if err := e.fees.Disburse(ctx, req.Token, req.Fees, req.DAppTag); err != nil {
		return nil, err
	}
	e.sink.Emit(ctx, events.BridgeInitiated{
		RequestID: req.RequestID,
		Token:     req.Token,
		Amount:    new(big.Int).Set(net),
		DAppName:  req.DAppName,
		DAppTag:   req.DAppTag,
	})
	return net, nil
}

// pullInput moves amountIn (plus pre-swap fees) of the input token from the
// caller into custody, and any additional per-leg amounts flagged
// NeedsTransferFromUser.
func (e *Executor) pullInput(caller common.Address, attachedValue *big.Int, req SwapRequest, calls []Call) error {
	needed := new(big.Int).Set(req.AmountIn)
	if req.FeeFromInputToken {
		needed.Add(needed, fees.Total(req.Fees))
	}
	if evm.IsNative(req.FromToken) {
		if attachedValue.Cmp(needed) < 0 {
			return fmt.Errorf("need %s, attached %s: %w", needed, attachedValue, ErrInsufficientValue)
		}
	} else {
		if err := e.host.TransferFrom(req.FromToken, caller, e.host.Self(), needed); err != nil {
			return fmt.Errorf("pull input token: %w", err)
		}
	}
	for i, c := range calls {
		if c.NeedsTransferFromUser && !evm.IsNative(c.SwapFromToken) {
			if err := e.host.TransferFrom(c.SwapFromToken, caller, e.host.Self(), c.Amount); err != nil {
				return fmt.Errorf("pull leg %d input: %w", i, err)
			}
		}
	}
	return nil
}

// executeLeg verifies whitelisting, grants allowance and invokes one call.
func (e *Executor) executeLeg(call Call) ([]byte, error) {
	if !e.registry.IsContractWhitelisted(call.Target) {
		return nil, fmt.Errorf("target %s: %w", call.Target.Hex(), ErrTargetNotWhitelisted)
	}
	if !e.registry.IsContractWhitelisted(call.Spender) {
		return nil, fmt.Errorf("spender %s: %w", call.Spender.Hex(), ErrTargetNotWhitelisted)
	}
	sel, ok := evm.Selector(call.CallData)
	if !ok {
		return nil, fmt.Errorf("calldata shorter than a selector: %w", ErrTargetNotWhitelisted)
	}
	if !e.registry.IsMethodWhitelisted(call.Target, sel) {
		return nil, fmt.Errorf("method %x on %s: %w", sel, call.Target.Hex(), ErrTargetNotWhitelisted)
	}

	value := new(big.Int)
	if evm.IsNative(call.SwapFromToken) {
		value.Set(call.Amount)
	} else {
		if err := e.approveMax(call.SwapFromToken, call.Spender, call.Amount); err != nil {
			return nil, err
		}
	}
	return e.host.Call(call.Target, value, call.CallData)
}

// approveMax tops the spender's allowance up to infinite, but only when the
// current allowance cannot cover amount. Repeated swaps through the same
// spender then skip the approval entirely.
func (e *Executor) approveMax(token, spender common.Address, amount *big.Int) error {
	current, err := e.host.Allowance(token, e.host.Self(), spender)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	if err := e.host.Approve(token, spender, evm.MaxAllowance); err != nil {
		return fmt.Errorf("approve %s for %s: %w", token.Hex(), spender.Hex(), err)
	}
	return nil
}

// snapshotIntermediates captures balances of every leg output token that is
// neither the final output nor the input, so over-delivered middle-hop tokens
// can be swept back instead of silently trapped.
func (e *Executor) snapshotIntermediates(req SwapRequest, calls []Call) ([]ledger.Snapshot, error) {
	seen := map[common.Address]bool{req.ToToken: true, req.FromToken: true}
	var snaps []ledger.Snapshot
	for _, c := range calls {
		if seen[c.SwapToToken] {
			continue
		}
		seen[c.SwapToToken] = true
		s, err := e.ledger.Snapshot(c.SwapToToken)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

func (e *Executor) sweepIntermediates(caller common.Address, req SwapRequest, snaps []ledger.Snapshot) error {
	for _, s := range snaps {
		diff, err := e.ledger.Diff(s)
		if err != nil {
			return err
		}
		if diff.Sign() > 0 {
			if err := e.host.Transfer(s.Token, caller, diff); err != nil {
				return fmt.Errorf("return leftover %s: %w", s.Token.Hex(), err)
			}
		}
	}
	return nil
}

// checkSourceBalance asserts the router's own pre-existing holdings of the
// input token did not shrink, and refunds any unspent remainder of what the
// caller provided.
func (e *Executor) checkSourceBalance(
	caller common.Address,
	attachedValue, extraNativeReserved *big.Int,
	req SwapRequest,
	fromSnap ledger.Snapshot,
) error {
	baseline := new(big.Int).Set(fromSnap.Before)
	if evm.IsNative(req.FromToken) {
		// The snapshot already contains the attached value; what must remain
		// is everything that was there before it, plus any reserved extra.
		baseline.Sub(baseline, attachedValue)
		baseline.Add(baseline, extraNativeReserved)
	}
	current, err := e.ledger.Balance(req.FromToken)
	if err != nil {
		return err
	}
	if current.Cmp(baseline) < 0 {
		return fmt.Errorf("balance %s under baseline %s: %w", current, baseline, ErrSourceBalanceDecreased)
	}
	excess := new(big.Int).Sub(current, baseline)
	if excess.Sign() > 0 {
		if err := e.host.Transfer(req.FromToken, caller, excess); err != nil {
			return fmt.Errorf("refund excess input: %w", err)
		}
	}
	return nil
}
