package swapper_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/abis"
	"github.com/rango-exchange/router-middleware/pkg/evm/sim"
	"github.com/rango-exchange/router-middleware/pkg/fees"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/registry"
	"github.com/rango-exchange/router-middleware/pkg/swapper"
)

type execFixture struct {
	world  *sim.World
	router common.Address
	host   evm.Host
	weth   common.Address
	reg    *registry.MemoryRegistry
	guard  *guard.Guard
	sink   *events.MemorySink
	exec   *swapper.Executor
}

func newExecFixture(t *testing.T) *execFixture {
	t.Helper()

	w := sim.NewWorld()
	router := w.NewAccount()
	host := w.HostFor(router)
	weth := sim.DeployWrappedNative(w, "WETH")
	reg := registry.NewMemoryRegistry(weth)
	g := guard.New()
	sink := &events.MemorySink{}
	exec := swapper.NewExecutor(host, reg, fees.NewAccountant(host, sink), g, sink, zap.NewNop())

	return &execFixture{
		world:  w,
		router: router,
		host:   host,
		weth:   weth,
		reg:    reg,
		guard:  g,
		sink:   sink,
		exec:   exec,
	}
}

func (f *execFixture) whitelist(t *testing.T, addr common.Address, callData []byte) {
	t.Helper()
	f.reg.AddContract(addr)
	sel, ok := evm.Selector(callData)
	if !ok {
		t.Fatal("calldata shorter than a selector")
	}
	f.reg.AddMethod(addr, sel)
}

func (f *execFixture) approve(t *testing.T, token, owner common.Address, amount *big.Int) {
	t.Helper()
	if err := f.world.HostFor(owner).Approve(token, f.router, amount); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func v2CallData(t *testing.T, amountIn, minOut *big.Int, path []common.Address, to common.Address) []byte {
	t.Helper()
	callData, err := abis.UniswapV2.Pack("swapExactTokensForTokens",
		amountIn, minOut, path, to, big.NewInt(9999999999))
	if err != nil {
		t.Fatalf("pack v2 calldata: %v", err)
	}
	return callData
}

// greedyDex pulls more input than the leg declared, simulating a dex abusing
// its allowance to drain pre-existing custody.
type greedyDex struct {
	token    common.Address
	outToken common.Address
	take     *big.Int
	pay      *big.Int
}

func (d *greedyDex) Run(call *sim.CallContext) ([]byte, error) {
	if err := call.TransferFrom(d.token, call.Caller, call.Self, d.take); err != nil {
		return nil, err
	}
	if d.pay != nil && d.pay.Sign() > 0 {
		if err := call.Transfer(d.outToken, call.Caller, d.pay); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestRunSwap_SingleLegKeepsOutputInCustody(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})

	f.world.Mint(tokenA, alice, big.NewInt(1000))
	f.world.Mint(tokenB, dex, big.NewInt(1000))
	f.approve(t, tokenA, alice, big.NewInt(1000))

	callData := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	f.whitelist(t, dex, callData)

	results, output, err := f.exec.RunSwap(ctx, alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(1000),
	}, []swapper.Call{{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}}, nil)
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if output.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("output = %s", output)
	}
	// Output stays in custody; the input left the caller.
	if got := f.world.BalanceOf(tokenB, f.router); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("router tokenB = %s", got)
	}
	if got := f.world.BalanceOf(tokenA, alice); got.Sign() != 0 {
		t.Fatalf("alice tokenA = %s", got)
	}

	var found bool
	for _, ev := range f.sink.Events() {
		if e, ok := ev.(events.SwapCompleted); ok {
			found = true
			if e.Output.Cmp(big.NewInt(1000)) != 0 {
				t.Fatalf("event output = %s", e.Output)
			}
		}
	}
	if !found {
		t.Fatal("SwapCompleted not emitted")
	}
}

func TestRunSwap_FeeFromInputToken(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	feeRecipient1 := f.world.NewAccount()
	feeRecipient2 := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})

	f.world.Mint(tokenA, alice, big.NewInt(1100))
	f.world.Mint(tokenB, dex, big.NewInt(1000))
	f.approve(t, tokenA, alice, big.NewInt(1100))

	callData := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	f.whitelist(t, dex, callData)

	_, output, err := f.exec.RunSwap(ctx, alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(1000),
		Fees: []fees.AffiliateFee{
			{Recipient: feeRecipient1, Amount: big.NewInt(60), FeeType: "affiliate"},
			{Recipient: feeRecipient2, Amount: big.NewInt(40), FeeType: "platform"},
		},
		TotalFee:          big.NewInt(100),
		FeeFromInputToken: true,
	}, []swapper.Call{{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}}, nil)
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}
	if output.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("output = %s", output)
	}
	if got := f.world.BalanceOf(tokenA, feeRecipient1); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("recipient1 fee = %s", got)
	}
	if got := f.world.BalanceOf(tokenA, feeRecipient2); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("recipient2 fee = %s", got)
	}
	if got := f.world.BalanceOf(tokenA, alice); got.Sign() != 0 {
		t.Fatalf("alice tokenA = %s", got)
	}
}

func TestRunSwap_FeeFromOutputToken(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	feeRecipient := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})

	f.world.Mint(tokenA, alice, big.NewInt(1000))
	f.world.Mint(tokenB, dex, big.NewInt(1000))
	f.approve(t, tokenA, alice, big.NewInt(1000))

	callData := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	f.whitelist(t, dex, callData)

	_, output, err := f.exec.RunSwap(ctx, alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(900),
		Fees: []fees.AffiliateFee{
			{Recipient: feeRecipient, Amount: big.NewInt(100), FeeType: "affiliate"},
		},
		TotalFee: big.NewInt(100),
	}, []swapper.Call{{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}}, nil)
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}
	// The fee left the output before measurement.
	if output.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("output = %s", output)
	}
	if got := f.world.BalanceOf(tokenB, feeRecipient); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("fee recipient tokenB = %s", got)
	}
}

func TestRunSwap_RejectsBadFeeBreakdown(t *testing.T) {
	f := newExecFixture(t)

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	f.world.Mint(tokenA, alice, big.NewInt(1000))

	_, _, err := f.exec.RunSwap(context.Background(), alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(0),
		Fees: []fees.AffiliateFee{
			{Recipient: f.world.NewAccount(), Amount: big.NewInt(90), FeeType: "affiliate"},
		},
		TotalFee: big.NewInt(100),
	}, nil, nil)
	if !errors.Is(err, fees.ErrInvalidFeeTotal) {
		t.Fatalf("expected ErrInvalidFeeTotal, got %v", err)
	}
	// Nothing moved.
	if got := f.world.BalanceOf(tokenA, alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("alice tokenA = %s", got)
	}
}

func TestRunSwap_OutputBelowMinimum(t *testing.T) {
	f := newExecFixture(t)

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 9000})

	f.world.Mint(tokenA, alice, big.NewInt(1000))
	f.world.Mint(tokenB, dex, big.NewInt(1000))
	f.approve(t, tokenA, alice, big.NewInt(1000))

	callData := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	f.whitelist(t, dex, callData)

	_, _, err := f.exec.RunSwap(context.Background(), alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(950),
	}, []swapper.Call{{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}}, nil)
	if !errors.Is(err, swapper.ErrOutputBelowMinimum) {
		t.Fatalf("expected ErrOutputBelowMinimum, got %v", err)
	}
}

func TestRunSwap_WhitelistFailures(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})
	// Two attempts will run and each pulls the input before leg validation.
	f.world.Mint(tokenA, alice, big.NewInt(200))
	f.approve(t, tokenA, alice, big.NewInt(200))

	callData := v2CallData(t, big.NewInt(100), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	req := swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(100),
		MinimumAmountExpected: big.NewInt(0),
	}
	leg := swapper.Call{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(100),
		CallData:      callData,
	}

	// Contract not whitelisted at all.
	_, _, err := f.exec.RunSwap(ctx, alice, nil, req, []swapper.Call{leg}, nil)
	if !errors.Is(err, swapper.ErrTargetNotWhitelisted) {
		t.Fatalf("expected ErrTargetNotWhitelisted, got %v", err)
	}

	// Contract whitelisted, method not.
	f.reg.AddContract(dex)
	_, _, err = f.exec.RunSwap(ctx, alice, nil, req, []swapper.Call{leg}, nil)
	if !errors.Is(err, swapper.ErrTargetNotWhitelisted) {
		t.Fatalf("expected method rejection, got %v", err)
	}
}

func TestRunSwap_ApproveMaxIsIdempotent(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	dex := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})

	f.world.Mint(tokenA, alice, big.NewInt(2000))
	f.world.Mint(tokenB, dex, big.NewInt(2000))
	f.approve(t, tokenA, alice, big.NewInt(2000))

	callData := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	f.whitelist(t, dex, callData)

	req := swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(1000),
	}
	leg := swapper.Call{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}

	for i := 0; i < 2; i++ {
		if _, _, err := f.exec.RunSwap(ctx, alice, nil, req, []swapper.Call{leg}, nil); err != nil {
			t.Fatalf("RunSwap %d: %v", i, err)
		}
	}

	// The infinite allowance granted on the first run survives both swaps.
	allowance, err := f.host.Allowance(tokenA, f.router, dex)
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if allowance.Cmp(evm.MaxAllowance) != 0 {
		t.Fatalf("allowance = %s", allowance)
	}
}

func TestRunSwap_SweepsLeftoverIntermediate(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	tokenC := f.world.CreateToken("CCC", 0)
	alice := f.world.NewAccount()
	dex1 := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 20000})
	dex2 := f.world.DeployContract(&sim.FixedRateRouter{RateBps: 10000})

	f.world.Mint(tokenA, alice, big.NewInt(1000))
	f.world.Mint(tokenB, dex1, big.NewInt(2000))
	f.world.Mint(tokenC, dex2, big.NewInt(2000))
	f.approve(t, tokenA, alice, big.NewInt(1000))

	leg1Data := v2CallData(t, big.NewInt(1000), big.NewInt(0), []common.Address{tokenA, tokenB}, f.router)
	// The second leg consumes only part of what the first produced.
	leg2Data := v2CallData(t, big.NewInt(1500), big.NewInt(0), []common.Address{tokenB, tokenC}, f.router)
	f.whitelist(t, dex1, leg1Data)
	f.whitelist(t, dex2, leg2Data)

	_, output, err := f.exec.RunSwap(ctx, alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenC,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(1500),
	}, []swapper.Call{
		{
			Spender:       dex1,
			Target:        dex1,
			SwapFromToken: tokenA,
			SwapToToken:   tokenB,
			Amount:        big.NewInt(1000),
			CallData:      leg1Data,
		},
		{
			Spender:       dex2,
			Target:        dex2,
			SwapFromToken: tokenB,
			SwapToToken:   tokenC,
			Amount:        big.NewInt(1500),
			CallData:      leg2Data,
		},
	}, nil)
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}
	if output.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("output = %s", output)
	}
	// The over-delivered middle-hop remainder went back to the caller.
	if got := f.world.BalanceOf(tokenB, alice); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("alice tokenB = %s", got)
	}
	if got := f.world.BalanceOf(tokenB, f.router); got.Sign() != 0 {
		t.Fatalf("router tokenB = %s", got)
	}
}

func TestRunSwap_DetectsSourceBalanceDrain(t *testing.T) {
	f := newExecFixture(t)

	tokenA := f.world.CreateToken("AAA", 0)
	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()

	// The dex pulls more than the leg declared, draining pre-existing custody.
	dex := f.world.DeployContract(&greedyDex{
		token:    tokenA,
		outToken: tokenB,
		take:     big.NewInt(1300),
		pay:      big.NewInt(1000),
	})

	f.world.Mint(tokenA, f.router, big.NewInt(500))
	f.world.Mint(tokenA, alice, big.NewInt(1000))
	f.world.Mint(tokenB, dex, big.NewInt(1000))
	f.approve(t, tokenA, alice, big.NewInt(1000))

	callData := []byte{0xde, 0xad, 0xbe, 0xef}
	f.whitelist(t, dex, callData)

	_, _, err := f.exec.RunSwap(context.Background(), alice, nil, swapper.SwapRequest{
		FromToken:             tokenA,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(1000),
		MinimumAmountExpected: big.NewInt(0),
	}, []swapper.Call{{
		Spender:       dex,
		Target:        dex,
		SwapFromToken: tokenA,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(1000),
		CallData:      callData,
	}}, nil)
	if !errors.Is(err, swapper.ErrSourceBalanceDecreased) {
		t.Fatalf("expected ErrSourceBalanceDecreased, got %v", err)
	}
}

func TestRunSwap_NativeInput(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	sinkContract := &sim.Sink{}
	target := f.world.DeployContract(sinkContract)

	callData, err := sim.SinkABI.Pack("sink", evm.NativeToken, alice, big.NewInt(800))
	if err != nil {
		t.Fatalf("pack sink calldata: %v", err)
	}
	f.whitelist(t, target, callData)

	// The attached value already sits in custody when RunSwap starts.
	f.world.FundNative(f.router, big.NewInt(1000))

	_, _, err = f.exec.RunSwap(ctx, alice, big.NewInt(1000), swapper.SwapRequest{
		FromToken:             evm.NativeToken,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(800),
		MinimumAmountExpected: big.NewInt(0),
	}, []swapper.Call{{
		Spender:       target,
		Target:        target,
		SwapFromToken: evm.NativeToken,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(800),
		CallData:      callData,
	}}, nil)
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}

	// 800 went to the sink; the unspent 200 went back to the caller.
	if got := f.world.BalanceOf(evm.NativeToken, target); got.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("sink native = %s", got)
	}
	if got := f.world.BalanceOf(evm.NativeToken, alice); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("alice native = %s", got)
	}
	if got := f.world.BalanceOf(evm.NativeToken, f.router); got.Sign() != 0 {
		t.Fatalf("router native = %s", got)
	}
}

func TestRunSwap_ExtraNativeReservedStaysInCustody(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()
	target := f.world.DeployContract(&sim.Sink{})

	callData, err := sim.SinkABI.Pack("sink", evm.NativeToken, alice, big.NewInt(800))
	if err != nil {
		t.Fatalf("pack sink calldata: %v", err)
	}
	f.whitelist(t, target, callData)
	f.world.FundNative(f.router, big.NewInt(1000))

	_, _, err = f.exec.RunSwap(ctx, alice, big.NewInt(1000), swapper.SwapRequest{
		FromToken:             evm.NativeToken,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(800),
		MinimumAmountExpected: big.NewInt(0),
	}, []swapper.Call{{
		Spender:       target,
		Target:        target,
		SwapFromToken: evm.NativeToken,
		SwapToToken:   tokenB,
		Amount:        big.NewInt(800),
		CallData:      callData,
	}}, big.NewInt(200))
	if err != nil {
		t.Fatalf("RunSwap: %v", err)
	}

	// The reserved 200 stays with the router instead of being refunded.
	if got := f.world.BalanceOf(evm.NativeToken, alice); got.Sign() != 0 {
		t.Fatalf("alice native = %s", got)
	}
	if got := f.world.BalanceOf(evm.NativeToken, f.router); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("router native = %s", got)
	}
}

func TestRunSwap_InsufficientAttachedValue(t *testing.T) {
	f := newExecFixture(t)

	tokenB := f.world.CreateToken("BBB", 0)
	alice := f.world.NewAccount()

	_, _, err := f.exec.RunSwap(context.Background(), alice, big.NewInt(500), swapper.SwapRequest{
		FromToken:             evm.NativeToken,
		ToToken:               tokenB,
		AmountIn:              big.NewInt(800),
		MinimumAmountExpected: big.NewInt(0),
	}, nil, nil)
	if !errors.Is(err, swapper.ErrInsufficientValue) {
		t.Fatalf("expected ErrInsufficientValue, got %v", err)
	}
}

func TestRunSwap_SharedGuardRejectsReentry(t *testing.T) {
	f := newExecFixture(t)

	release, err := f.guard.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	alice := f.world.NewAccount()
	_, _, err = f.exec.RunSwap(context.Background(), alice, nil, swapper.SwapRequest{}, nil, nil)
	if !errors.Is(err, guard.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
}

func TestInitiateBridge_AppliesFeeSplit(t *testing.T) {
	f := newExecFixture(t)
	ctx := context.Background()

	token := f.world.CreateToken("TTT", 0)
	feeRecipient1 := f.world.NewAccount()
	feeRecipient2 := f.world.NewAccount()
	f.world.Mint(token, f.router, big.NewInt(1000))

	net, err := f.exec.InitiateBridge(ctx, swapper.BridgeRequest{
		RequestID: []byte{0x09},
		Token:     token,
		Amount:    big.NewInt(1000),
		Fees: []fees.AffiliateFee{
			{Recipient: feeRecipient1, Amount: big.NewInt(60), FeeType: "affiliate"},
			{Recipient: feeRecipient2, Amount: big.NewInt(40), FeeType: "platform"},
		},
		TotalFee: big.NewInt(100),
	})
	if err != nil {
		t.Fatalf("InitiateBridge: %v", err)
	}
	if net.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("net = %s", net)
	}
	if got := f.world.BalanceOf(token, feeRecipient1); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("recipient1 = %s", got)
	}
	if got := f.world.BalanceOf(token, feeRecipient2); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("recipient2 = %s", got)
	}

	var found bool
	for _, ev := range f.sink.Events() {
		if e, ok := ev.(events.BridgeInitiated); ok {
			found = true
			if e.Amount.Cmp(big.NewInt(900)) != 0 {
				t.Fatalf("event amount = %s", e.Amount)
			}
		}
	}
	if !found {
		t.Fatal("BridgeInitiated not emitted")
	}
}

func TestInitiateBridge_RejectsFeesConsumingEverything(t *testing.T) {
	f := newExecFixture(t)

	token := f.world.CreateToken("TTT", 0)
	f.world.Mint(token, f.router, big.NewInt(1000))

	_, err := f.exec.InitiateBridge(context.Background(), swapper.BridgeRequest{
		Token:  token,
		Amount: big.NewInt(1000),
		Fees: []fees.AffiliateFee{
			{Recipient: f.world.NewAccount(), Amount: big.NewInt(1000), FeeType: "affiliate"},
		},
		TotalFee: big.NewInt(1000),
	})
	if !errors.Is(err, fees.ErrInvalidFeeTotal) {
		t.Fatalf("expected ErrInvalidFeeTotal, got %v", err)
	}
}
