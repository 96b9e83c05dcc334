package sim

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/abis"
)

// FixedRateRouter answers the UniswapV2, UniswapV3 (both router generations)
// and Curve exchange ABIs at a fixed output rate. Out = in * RateBps / 10000.
// The router pays from its own inventory, so fund it before swapping.
type FixedRateRouter struct {
	RateBps  int64
	FailWith string // when set, every call reverts with this reason
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactInputParamsR2 struct {
	Path             []byte
	Recipient        common.Address
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

func (r *FixedRateRouter) quote(in *big.Int) *big.Int {
	out := new(big.Int).Mul(in, big.NewInt(r.RateBps))
	return out.Div(out, big.NewInt(10000))
}

func (r *FixedRateRouter) Run(call *CallContext) ([]byte, error) {
	if r.FailWith != "" {
		return nil, evm.Revert(r.FailWith)
	}
	sel, ok := evm.Selector(call.Input)
	if !ok {
		return nil, evm.Revert("unknown method")
	}
	switch {
	case bytes.Equal(sel[:], abis.UniswapV2.Methods["swapExactTokensForTokens"].ID):
		return r.swapV2(call)
	case bytes.Equal(sel[:], abis.UniswapV3.Methods["exactInput"].ID):
		return r.swapV3(call, false)
	case bytes.Equal(sel[:], abis.UniswapV3R2.Methods["exactInput"].ID):
		return r.swapV3(call, true)
	case bytes.Equal(sel[:], abis.CurveRouter.Methods["exchange"].ID):
		return r.exchange(call)
	}
	return nil, evm.Revert("unknown method")
}

func (r *FixedRateRouter) swapV2(call *CallContext) ([]byte, error) {
	method := abis.UniswapV2.Methods["swapExactTokensForTokens"]
	vals, err := method.Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, evm.Revert("bad calldata")
	}
	amountIn := vals[0].(*big.Int)
	amountOutMin := vals[1].(*big.Int)
	path := vals[2].([]common.Address)
	to := vals[3].(common.Address)
	if len(path) < 2 {
		return nil, evm.Revert("UniswapV2Router: INVALID_PATH")
	}
	if err := call.TransferFrom(path[0], call.Caller, call.Self, amountIn); err != nil {
		return nil, err
	}
	out := r.quote(amountIn)
	if out.Cmp(amountOutMin) < 0 {
		return nil, evm.Revert("UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
	}
	if err := call.Transfer(path[len(path)-1], to, out); err != nil {
		return nil, err
	}
	return method.Outputs.Pack([]*big.Int{amountIn, out})
}

func (r *FixedRateRouter) swapV3(call *CallContext, router2 bool) ([]byte, error) {
	var (
		path      []byte
		recipient common.Address
		amountIn  *big.Int
		minOut    *big.Int
		method    abi.Method
	)
	if router2 {
		method = abis.UniswapV3R2.Methods["exactInput"]
		vals, err := method.Inputs.Unpack(call.Input[4:])
		if err != nil {
			return nil, evm.Revert("bad calldata")
		}
		p := abi.ConvertType(vals[0], new(exactInputParamsR2)).(*exactInputParamsR2)
		path, recipient, amountIn, minOut = p.Path, p.Recipient, p.AmountIn, p.AmountOutMinimum
	} else {
		method = abis.UniswapV3.Methods["exactInput"]
		vals, err := method.Inputs.Unpack(call.Input[4:])
		if err != nil {
			return nil, evm.Revert("bad calldata")
		}
		p := abi.ConvertType(vals[0], new(exactInputParams)).(*exactInputParams)
		path, recipient, amountIn, minOut = p.Path, p.Recipient, p.AmountIn, p.AmountOutMinimum
	}
	if len(path) < 40 {
		return nil, evm.Revert("invalid path")
	}
	tokenIn := common.BytesToAddress(path[:20])
	tokenOut := common.BytesToAddress(path[len(path)-20:])
	if err := call.TransferFrom(tokenIn, call.Caller, call.Self, amountIn); err != nil {
		return nil, err
	}
	out := r.quote(amountIn)
	if out.Cmp(minOut) < 0 {
		return nil, evm.Revert("Too little received")
	}
	if err := call.Transfer(tokenOut, recipient, out); err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out)
}

func (r *FixedRateRouter) exchange(call *CallContext) ([]byte, error) {
	method := abis.CurveRouter.Methods["exchange"]
	vals, err := method.Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, evm.Revert("bad calldata")
	}
	route := vals[0].([11]common.Address)
	amount := vals[2].(*big.Int)
	expected := vals[3].(*big.Int)

	in := route[0]
	if in == evm.NativeAlias {
		if call.Value.Cmp(amount) != 0 {
			return nil, evm.Revert("wrong value")
		}
	} else {
		if err := call.TransferFrom(in, call.Caller, call.Self, amount); err != nil {
			return nil, err
		}
	}
	var outToken common.Address
	for i := len(route) - 1; i >= 0; i-- {
		if route[i] != (common.Address{}) {
			outToken = route[i]
			break
		}
	}
	out := r.quote(amount)
	if out.Cmp(expected) < 0 {
		return nil, evm.Revert("Slippage")
	}
	if outToken == evm.NativeAlias {
		outToken = evm.NativeToken
	}
	if err := call.Transfer(outToken, call.Caller, out); err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out)
}

// RevertingContract rejects every call.
type RevertingContract struct {
	Reason string
}

func (c *RevertingContract) Run(*CallContext) ([]byte, error) {
	return nil, evm.Revert(c.Reason)
}

// ReceivedMessage is one recorded handleRangoMessage invocation.
type ReceivedMessage struct {
	Token   common.Address
	Amount  *big.Int
	Status  uint8
	Message []byte
}

// MessageReceiver implements the dApp receiver callback and records what it
// was told. Set FailWith to make the callback revert.
type MessageReceiver struct {
	FailWith string
	Received []ReceivedMessage
}

func (c *MessageReceiver) Run(call *CallContext) ([]byte, error) {
	sel, ok := evm.Selector(call.Input)
	if !ok || !bytes.Equal(sel[:], abis.MessageReceiver.Methods["handleRangoMessage"].ID) {
		return nil, evm.Revert("unknown method")
	}
	if c.FailWith != "" {
		return nil, evm.Revert(c.FailWith)
	}
	vals, err := abis.MessageReceiver.Methods["handleRangoMessage"].Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, evm.Revert("bad calldata")
	}
	c.Received = append(c.Received, ReceivedMessage{
		Token:   vals[0].(common.Address),
		Amount:  vals[1].(*big.Int),
		Status:  vals[2].(uint8),
		Message: vals[3].([]byte),
	})
	return nil, nil
}

const sinkJSON = `[
	{"name":"sink","type":"function","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},
		{"name":"beneficiary","type":"address"},
		{"name":"amount","type":"uint256"}
	],"outputs":[]}
]`

// SinkABI is the ABI of the Sink fixture. The amount argument sits at byte
// offset 68 of the calldata, which makes it a natural target for
// amount-overwrite tests.
var SinkABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(sinkJSON))
	if err != nil {
		panic(err)
	}
	SinkABI = parsed
}

// SinkCall is one recorded sink invocation.
type SinkCall struct {
	Token       common.Address
	Beneficiary common.Address
	Amount      *big.Int
	Value       *big.Int
}

// Sink is a destination-call fixture: it pulls the declared amount from the
// caller (ERC-20 via allowance, native via attached value) and records it.
type Sink struct {
	Calls []SinkCall
}

func (c *Sink) Run(call *CallContext) ([]byte, error) {
	sel, ok := evm.Selector(call.Input)
	if !ok || !bytes.Equal(sel[:], SinkABI.Methods["sink"].ID) {
		return nil, evm.Revert("unknown method")
	}
	vals, err := SinkABI.Methods["sink"].Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, evm.Revert("bad calldata")
	}
	token := vals[0].(common.Address)
	beneficiary := vals[1].(common.Address)
	amount := vals[2].(*big.Int)
	if evm.IsNative(token) {
		if call.Value.Cmp(amount) < 0 {
			return nil, evm.Revert("insufficient value")
		}
	} else {
		if err := call.TransferFrom(token, call.Caller, call.Self, amount); err != nil {
			return nil, err
		}
	}
	c.Calls = append(c.Calls, SinkCall{
		Token:       token,
		Beneficiary: beneficiary,
		Amount:      amount,
		Value:       new(big.Int).Set(call.Value),
	})
	return nil, nil
}
