package interchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/internal/metrics"
	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/abis"
	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/ledger"
	"github.com/rango-exchange/router-middleware/pkg/registry"
)

var (
	// ErrContractNotWhitelisted rejects a settlement whose action names a dex,
	// target or spender the registry does not allow. This is a configuration
	// fault, not a market fault, so it aborts instead of degrading.
	ErrContractNotWhitelisted = errors.New("contract is not whitelisted")

	// ErrPathTooShort rejects a swap path with fewer than two hops.
	ErrPathTooShort = errors.New("swap path needs at least two hops")

	// ErrTokenMismatch rejects an action whose declared input token does not
	// match the token the bridge actually delivered.
	ErrTokenMismatch = errors.New("working token does not match action input")
)

// SettleResult is what a completed settlement delivered and with what status.
type SettleResult struct {
	Token  common.Address
	Amount *big.Int
	Status Status
}

// outcome is the internal result of the action phase. ok=false means the
// action failed and the settlement continues on the refund path with the
// carried token and amount.
type outcome struct {
	token  common.Address
	amount *big.Int
	ok     bool
}

// Dispatcher settles incoming bridge deliveries. It shares the re-entrancy
// guard with the swap executor: both mutate the same custody balances.
type Dispatcher struct {
	host     evm.Host
	ledger   *ledger.Ledger
	registry registry.Registry
	guard    *guard.Guard
	sink     events.Sink
	logger   *zap.Logger
}

func NewDispatcher(
	host evm.Host,
	reg registry.Registry,
	g *guard.Guard,
	sink events.Sink,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		host:     host,
		ledger:   ledger.New(host),
		registry: reg,
		guard:    g,
		sink:     sink,
		logger:   logger,
	}
}

// SettleIncoming processes funds delivered by a bridge together with their
// decoded message. The action phase is fail-open: a reverting dex call, an
// undecodable action blob or a failed post-action all degrade to delivering
// the funds in whatever form they are in, with status RefundInDestination.
// Errors are reserved for configuration faults and delivery failures, where
// continuing would move funds somewhere the message never authorized.
func (d *Dispatcher) SettleIncoming(ctx context.Context, token common.Address, amount *big.Int, msg *Message) (SettleResult, error) {
	release, err := d.guard.Acquire()
	if err != nil {
		return SettleResult{}, err
	}
	defer release()

	start := time.Now()
	actionName := ActionTypeNone.String()
	if msg.Action != nil {
		actionName = msg.Action.Type().String()
	}

	// Some bridges deliver wrapped-native standing in for the native coin.
	// Unwrap up front so the rest of the pipeline sees the real asset.
	if msg.BridgeRealOutput && token == d.registry.WrappedNative() {
		if err := d.unwrap(amount); err != nil {
			metrics.ErrorsTotal.WithLabelValues("interchain", "unwrap_failed").Inc()
			return SettleResult{}, fmt.Errorf("unwrapping bridged wrapped-native: %w", err)
		}
		token = evm.NativeToken
	}

	out, err := d.executeAction(ctx, token, amount, msg)
	if err != nil {
		metrics.ActionsExecuted.WithLabelValues(actionName, "aborted").Inc()
		return SettleResult{}, err
	}
	if out.ok {
		metrics.ActionsExecuted.WithLabelValues(actionName, "ok").Inc()
	} else {
		metrics.ActionsExecuted.WithLabelValues(actionName, "failed").Inc()
	}

	if out.ok && msg.PostAction != SubActionNone {
		out = d.applyPostAction(out, msg.PostAction)
	}

	status := StatusSucceeded
	if !out.ok {
		status = StatusRefundInDestination
	}

	if msg.DAppDestContract != (common.Address{}) {
		if err := d.deliverToDApp(ctx, out, status, msg); err != nil {
			return SettleResult{}, err
		}
	} else {
		if err := d.host.Transfer(out.token, msg.Recipient, out.amount); err != nil {
			metrics.ErrorsTotal.WithLabelValues("interchain", "delivery_failed").Inc()
			return SettleResult{}, fmt.Errorf("delivering settled funds to %s: %w", msg.Recipient.Hex(), err)
		}
	}

	d.sink.Emit(ctx, events.BridgeCompleted{
		RequestID:      msg.RequestID,
		Token:          out.token,
		OriginalSender: msg.OriginalSender,
		Recipient:      msg.Recipient,
		Amount:         out.amount,
		Status:         status.String(),
		DAppTag:        msg.DAppTag,
	})
	metrics.SettlementDuration.WithLabelValues(actionName).Observe(time.Since(start).Seconds())

	d.logger.Info("settled incoming bridge",
		zap.String("request_id", common.Bytes2Hex(msg.RequestID)),
		zap.String("action", actionName),
		zap.String("status", status.String()),
		zap.String("token", out.token.Hex()),
		zap.String("amount", out.amount.String()))

	return SettleResult{Token: out.token, Amount: out.amount, Status: status}, nil
}

func (d *Dispatcher) executeAction(ctx context.Context, token common.Address, amount *big.Int, msg *Message) (outcome, error) {
	switch a := msg.Action.(type) {
	case nil, NoAction:
		return outcome{token: token, amount: amount, ok: true}, nil
	case InvalidAction:
		// The declared action type and the blob disagree. Guessing at intent
		// with someone else's funds is not an option; refund path.
		d.logger.Warn("action blob does not decode as declared type",
			zap.String("declared", a.Declared.String()),
			zap.Error(a.Err))
		return outcome{token: token, amount: amount, ok: false}, nil
	case UniswapV2:
		return d.runUniswapV2(token, amount, a)
	case UniswapV3:
		return d.runUniswapV3(token, amount, a)
	case ContractCall:
		return d.runContractCall(token, amount, msg.ToToken, a)
	case CurveSwap:
		return d.runCurve(token, amount, a)
	}
	return outcome{token: token, amount: amount, ok: false}, nil
}

func (d *Dispatcher) runUniswapV2(token common.Address, amount *big.Int, a UniswapV2) (outcome, error) {
	if !d.registry.IsContractWhitelisted(a.DexAddress) {
		return outcome{}, fmt.Errorf("dex %s: %w", a.DexAddress.Hex(), ErrContractNotWhitelisted)
	}
	if len(a.Path) < 2 {
		return outcome{}, ErrPathTooShort
	}

	working, workAmount := token, amount
	if evm.IsNative(working) && a.Path[0] == d.registry.WrappedNative() {
		if err := d.wrap(workAmount); err != nil {
			return outcome{}, fmt.Errorf("wrapping native for swap: %w", err)
		}
		working = a.Path[0]
	}
	if working != a.Path[0] {
		return outcome{}, fmt.Errorf("token %s vs path start %s: %w", working.Hex(), a.Path[0].Hex(), ErrTokenMismatch)
	}

	input, err := abis.UniswapV2.Pack("swapExactTokensForTokens",
		workAmount, bigOrZero(a.AmountOutMin), a.Path, d.host.Self(), bigOrZero(a.Deadline))
	if err != nil {
		return outcome{}, fmt.Errorf("encoding swapExactTokensForTokens: %w", err)
	}

	outToken := a.Path[len(a.Path)-1]
	return d.runSwapCall(working, workAmount, outToken, a.DexAddress, a.DexAddress, input)
}

func (d *Dispatcher) runUniswapV3(token common.Address, amount *big.Int, a UniswapV3) (outcome, error) {
	if !d.registry.IsContractWhitelisted(a.DexAddress) {
		return outcome{}, fmt.Errorf("dex %s: %w", a.DexAddress.Hex(), ErrContractNotWhitelisted)
	}

	working, workAmount := token, amount
	if evm.IsNative(working) && a.TokenIn == d.registry.WrappedNative() {
		if err := d.wrap(workAmount); err != nil {
			return outcome{}, fmt.Errorf("wrapping native for swap: %w", err)
		}
		working = a.TokenIn
	}
	if working != a.TokenIn {
		return outcome{}, fmt.Errorf("token %s vs declared input %s: %w", working.Hex(), a.TokenIn.Hex(), ErrTokenMismatch)
	}

	var (
		input []byte
		err   error
	)
	if a.IsRouter2 {
		input, err = abis.UniswapV3R2.Pack("exactInput", exactInputRouter2Params{
			Path:             a.EncodedPath,
			Recipient:        d.host.Self(),
			AmountIn:         workAmount,
			AmountOutMinimum: bigOrZero(a.AmountOutMinimum),
		})
	} else {
		input, err = abis.UniswapV3.Pack("exactInput", exactInputParams{
			Path:             a.EncodedPath,
			Recipient:        d.host.Self(),
			Deadline:         bigOrZero(a.Deadline),
			AmountIn:         workAmount,
			AmountOutMinimum: bigOrZero(a.AmountOutMinimum),
		})
	}
	if err != nil {
		return outcome{}, fmt.Errorf("encoding exactInput: %w", err)
	}

	return d.runSwapCall(working, workAmount, a.TokenOut, a.DexAddress, a.DexAddress, input)
}

func (d *Dispatcher) runCurve(token common.Address, amount *big.Int, a CurveSwap) (outcome, error) {
	if !d.registry.IsContractWhitelisted(a.Router) {
		return outcome{}, fmt.Errorf("curve router %s: %w", a.Router.Hex(), ErrContractNotWhitelisted)
	}

	// Curve routes use the 0xeeee…eeee alias for the native coin.
	if evm.IsNative(token) {
		if a.Routes[0] != evm.NativeAlias {
			return outcome{}, fmt.Errorf("native input but route starts at %s: %w", a.Routes[0].Hex(), ErrTokenMismatch)
		}
	} else if a.Routes[0] != token {
		return outcome{}, fmt.Errorf("token %s vs route start %s: %w", token.Hex(), a.Routes[0].Hex(), ErrTokenMismatch)
	}

	input, err := abis.CurveRouter.Pack("exchange",
		a.Routes, normalizeSwapParams(a.SwapParams), amount, bigOrZero(a.Expected), a.Pools)
	if err != nil {
		return outcome{}, fmt.Errorf("encoding curve exchange: %w", err)
	}

	outToken := a.ToToken
	if outToken == evm.NativeAlias {
		outToken = evm.NativeToken
	}
	return d.runSwapCall(token, amount, outToken, a.Router, a.Router, input)
}

// runSwapCall performs the shared tail of every dex action: grant an exact
// allowance (or attach value for native input), invoke the dex, measure the
// produced output by balance diff, and clear the allowance whether the call
// reverted or not. A revert degrades to ok=false with the input unchanged.
func (d *Dispatcher) runSwapCall(working common.Address, workAmount *big.Int, outToken, spender, target common.Address, input []byte) (outcome, error) {
	value := new(big.Int)
	if evm.IsNative(working) {
		value = workAmount
	} else {
		if err := d.host.Approve(working, spender, workAmount); err != nil {
			return outcome{}, fmt.Errorf("approving %s for %s: %w", working.Hex(), spender.Hex(), err)
		}
	}

	got, callErr := d.ledger.Measure(outToken, func() error {
		_, err := d.host.Call(target, value, input)
		return err
	})

	if !evm.IsNative(working) {
		if err := d.host.Approve(working, spender, new(big.Int)); err != nil {
			return outcome{}, fmt.Errorf("clearing allowance of %s for %s: %w", working.Hex(), spender.Hex(), err)
		}
	}

	if callErr != nil {
		d.logger.Warn("destination swap reverted, falling back to refund",
			zap.String("target", target.Hex()),
			zap.Error(callErr))
		return outcome{token: working, amount: workAmount, ok: false}, nil
	}
	return outcome{token: outToken, amount: got, ok: true}, nil
}

func (d *Dispatcher) runContractCall(token common.Address, amount *big.Int, toToken common.Address, a ContractCall) (outcome, error) {
	if !d.registry.IsContractWhitelisted(a.Target) {
		return outcome{}, fmt.Errorf("call target %s: %w", a.Target.Hex(), ErrContractNotWhitelisted)
	}
	if !d.registry.IsContractWhitelisted(a.Spender) {
		return outcome{}, fmt.Errorf("call spender %s: %w", a.Spender.Hex(), ErrContractNotWhitelisted)
	}

	working, workAmount := token, amount
	switch a.PreAction {
	case SubActionWrap:
		if !evm.IsNative(working) || a.TokenIn != d.registry.WrappedNative() {
			d.logger.Warn("wrap pre-action type mismatch, falling back to refund",
				zap.String("token", working.Hex()),
				zap.String("token_in", a.TokenIn.Hex()))
			return outcome{token: working, amount: workAmount, ok: false}, nil
		}
		if err := d.wrap(workAmount); err != nil {
			return outcome{token: working, amount: workAmount, ok: false}, nil
		}
		working = a.TokenIn
	case SubActionUnwrap:
		if working != d.registry.WrappedNative() || !evm.IsNative(a.TokenIn) {
			d.logger.Warn("unwrap pre-action type mismatch, falling back to refund",
				zap.String("token", working.Hex()),
				zap.String("token_in", a.TokenIn.Hex()))
			return outcome{token: working, amount: workAmount, ok: false}, nil
		}
		if err := d.unwrap(workAmount); err != nil {
			return outcome{token: working, amount: workAmount, ok: false}, nil
		}
		working = evm.NativeToken
	default:
		if working != a.TokenIn {
			d.logger.Warn("call input token mismatch, falling back to refund",
				zap.String("token", working.Hex()),
				zap.String("token_in", a.TokenIn.Hex()))
			return outcome{token: working, amount: workAmount, ok: false}, nil
		}
	}

	callData := a.CallData
	if a.OverwriteAmount {
		if !a.StartIndexForAmount.IsInt64() {
			return outcome{}, evm.ErrSpliceOutOfBounds
		}
		spliced, err := evm.SpliceAmount(callData, int(a.StartIndexForAmount.Int64()), workAmount)
		if err != nil {
			return outcome{}, fmt.Errorf("splicing settled amount at %s: %w", a.StartIndexForAmount.String(), err)
		}
		callData = spliced
	}

	value := new(big.Int)
	if evm.IsNative(working) {
		value = workAmount
	} else {
		if err := d.host.Approve(working, a.Spender, workAmount); err != nil {
			return outcome{}, fmt.Errorf("approving %s for %s: %w", working.Hex(), a.Spender.Hex(), err)
		}
	}

	got, callErr := d.ledger.Measure(toToken, func() error {
		_, err := d.host.Call(a.Target, value, callData)
		return err
	})

	if !evm.IsNative(working) {
		if err := d.host.Approve(working, a.Spender, new(big.Int)); err != nil {
			return outcome{}, fmt.Errorf("clearing allowance of %s for %s: %w", working.Hex(), a.Spender.Hex(), err)
		}
	}

	if callErr != nil {
		d.logger.Warn("destination call reverted, falling back to refund",
			zap.String("target", a.Target.Hex()),
			zap.Error(callErr))
		return outcome{token: working, amount: workAmount, ok: false}, nil
	}
	return outcome{token: toToken, amount: got, ok: true}, nil
}

// applyPostAction converts the action output between native and
// wrapped-native. Failure does not revert the settlement: the action output
// is delivered as-is under the refund status.
func (d *Dispatcher) applyPostAction(out outcome, sub SubAction) outcome {
	wrapped := d.registry.WrappedNative()
	switch sub {
	case SubActionWrap:
		if !evm.IsNative(out.token) {
			d.logger.Warn("wrap post-action on non-native output", zap.String("token", out.token.Hex()))
			out.ok = false
			return out
		}
		if err := d.wrap(out.amount); err != nil {
			d.logger.Warn("wrap post-action reverted", zap.Error(err))
			out.ok = false
			return out
		}
		out.token = wrapped
	case SubActionUnwrap:
		if out.token != wrapped {
			d.logger.Warn("unwrap post-action on non-wrapped output", zap.String("token", out.token.Hex()))
			out.ok = false
			return out
		}
		if err := d.unwrap(out.amount); err != nil {
			d.logger.Warn("unwrap post-action reverted", zap.Error(err))
			out.ok = false
			return out
		}
		out.token = evm.NativeToken
	}
	return out
}

// deliverToDApp transfers the settled funds to the dApp's destination
// contract and then invokes its message handler. The callback runs after
// custody has already moved, so its failure is recorded but never propagated.
func (d *Dispatcher) deliverToDApp(ctx context.Context, out outcome, status Status, msg *Message) error {
	if err := d.host.Transfer(out.token, msg.DAppDestContract, out.amount); err != nil {
		metrics.ErrorsTotal.WithLabelValues("interchain", "delivery_failed").Inc()
		return fmt.Errorf("delivering settled funds to dapp %s: %w", msg.DAppDestContract.Hex(), err)
	}

	input, err := abis.MessageReceiver.Pack("handleRangoMessage",
		out.token, out.amount, uint8(status), msg.DAppMessage)
	if err != nil {
		return fmt.Errorf("encoding dapp callback: %w", err)
	}

	_, callErr := d.host.Call(msg.DAppDestContract, new(big.Int), input)
	ok := callErr == nil
	reason := ""
	if callErr != nil {
		var rev *evm.RevertError
		if errors.As(callErr, &rev) && rev.Reason != "" {
			reason = rev.Reason
		} else {
			reason = callErr.Error()
		}
		d.logger.Warn("dapp callback reverted",
			zap.String("dapp", msg.DAppDestContract.Hex()),
			zap.String("reason", reason))
	}

	d.sink.Emit(ctx, events.DAppCallbackResult{
		RequestID: msg.RequestID,
		DApp:      msg.DAppDestContract,
		OK:        ok,
		Reason:    reason,
	})
	return nil
}

func (d *Dispatcher) wrap(amount *big.Int) error {
	input, err := abis.WrappedNative.Pack("deposit")
	if err != nil {
		return err
	}
	_, err = d.host.Call(d.registry.WrappedNative(), amount, input)
	return err
}

func (d *Dispatcher) unwrap(amount *big.Int) error {
	input, err := abis.WrappedNative.Pack("withdraw", amount)
	if err != nil {
		return err
	}
	_, err = d.host.Call(d.registry.WrappedNative(), new(big.Int), input)
	return err
}

// Calldata shapes for the two exactInput generations.
type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactInputRouter2Params struct {
	Path             []byte
	Recipient        common.Address
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}
