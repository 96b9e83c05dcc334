package interchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// The envelope and per-action blobs travel as ABI-encoded tuples inside the
// bridge payload. Tuple layouts are fixed by the deployed source-side
// encoders and must not change shape.

var (
	messageArgs   = mustTupleArgs(messageComponents)
	uniswapV2Args = mustTupleArgs(uniswapV2Components)
	uniswapV3Args = mustTupleArgs(uniswapV3Components)
	callArgs      = mustTupleArgs(callComponents)
	curveArgs     = mustTupleArgs(curveComponents)
)

var messageComponents = []abi.ArgumentMarshaling{
	{Name: "requestId", Type: "bytes"},
	{Name: "dstChainId", Type: "uint256"},
	{Name: "bridgeRealOutput", Type: "bool"},
	{Name: "toToken", Type: "address"},
	{Name: "originalSender", Type: "address"},
	{Name: "recipient", Type: "address"},
	{Name: "actionType", Type: "uint8"},
	{Name: "action", Type: "bytes"},
	{Name: "postAction", Type: "uint8"},
	{Name: "dAppTag", Type: "uint16"},
	{Name: "dAppMessage", Type: "bytes"},
	{Name: "dAppSourceContract", Type: "address"},
	{Name: "dAppDestContract", Type: "address"},
}

var uniswapV2Components = []abi.ArgumentMarshaling{
	{Name: "dexAddress", Type: "address"},
	{Name: "amountOutMin", Type: "uint256"},
	{Name: "path", Type: "address[]"},
	{Name: "deadline", Type: "uint256"},
}

var uniswapV3Components = []abi.ArgumentMarshaling{
	{Name: "dexAddress", Type: "address"},
	{Name: "tokenIn", Type: "address"},
	{Name: "tokenOut", Type: "address"},
	{Name: "encodedPath", Type: "bytes"},
	{Name: "deadline", Type: "uint256"},
	{Name: "amountOutMinimum", Type: "uint256"},
	{Name: "isRouter2", Type: "bool"},
}

var callComponents = []abi.ArgumentMarshaling{
	{Name: "tokenIn", Type: "address"},
	{Name: "spender", Type: "address"},
	{Name: "preAction", Type: "uint8"},
	{Name: "target", Type: "address"},
	{Name: "overwriteAmount", Type: "bool"},
	{Name: "startIndexForAmount", Type: "uint256"},
	{Name: "callData", Type: "bytes"},
}

var curveComponents = []abi.ArgumentMarshaling{
	{Name: "routerContractAddress", Type: "address"},
	{Name: "routes", Type: "address[11]"},
	{Name: "swapParams", Type: "uint256[5][5]"},
	{Name: "expected", Type: "uint256"},
	{Name: "pools", Type: "address[5]"},
	{Name: "toToken", Type: "address"},
}

func mustTupleArgs(components []abi.ArgumentMarshaling) abi.Arguments {
	typ, err := abi.NewType("tuple", "", components)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: typ}}
}

type rawMessage struct {
	RequestId          []byte
	DstChainId         *big.Int
	BridgeRealOutput   bool
	ToToken            common.Address
	OriginalSender     common.Address
	Recipient          common.Address
	ActionType         uint8
	Action             []byte
	PostAction         uint8
	DAppTag            uint16
	DAppMessage        []byte
	DAppSourceContract common.Address
	DAppDestContract   common.Address
}

type rawUniswapV2 struct {
	DexAddress   common.Address
	AmountOutMin *big.Int
	Path         []common.Address
	Deadline     *big.Int
}

type rawUniswapV3 struct {
	DexAddress       common.Address
	TokenIn          common.Address
	TokenOut         common.Address
	EncodedPath      []byte
	Deadline         *big.Int
	AmountOutMinimum *big.Int
	IsRouter2        bool
}

type rawCall struct {
	TokenIn             common.Address
	Spender             common.Address
	PreAction           uint8
	Target              common.Address
	OverwriteAmount     bool
	StartIndexForAmount *big.Int
	CallData            []byte
}

type rawCurve struct {
	RouterContractAddress common.Address
	Routes                [11]common.Address
	SwapParams            [5][5]*big.Int
	Expected              *big.Int
	Pools                 [5]common.Address
	ToToken               common.Address
}

// The on-wire sub-action enum predates the none value; there it sorts last,
// while in memory none is the zero value.
const (
	wireSubActionWrap   = 0
	wireSubActionUnwrap = 1
	wireSubActionNone   = 2
)

func subActionFromWire(v uint8) (SubAction, error) {
	switch v {
	case wireSubActionWrap:
		return SubActionWrap, nil
	case wireSubActionUnwrap:
		return SubActionUnwrap, nil
	case wireSubActionNone:
		return SubActionNone, nil
	}
	return 0, fmt.Errorf("unknown sub-action %d", v)
}

func subActionToWire(s SubAction) uint8 {
	switch s {
	case SubActionWrap:
		return wireSubActionWrap
	case SubActionUnwrap:
		return wireSubActionUnwrap
	}
	return wireSubActionNone
}

// DecodeMessage decodes the interchain envelope. A malformed envelope is an
// error. A malformed action blob is not: it yields an InvalidAction so the
// dispatcher can degrade to the refund path instead of reverting after funds
// have already been delivered.
func DecodeMessage(data []byte) (*Message, error) {
	vals, err := messageArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking interchain message: %w", err)
	}
	raw := abi.ConvertType(vals[0], new(rawMessage)).(*rawMessage)

	postAction, err := subActionFromWire(raw.PostAction)
	if err != nil {
		return nil, fmt.Errorf("decoding post-action: %w", err)
	}

	msg := &Message{
		RequestID:          raw.RequestId,
		DstChainID:         raw.DstChainId,
		BridgeRealOutput:   raw.BridgeRealOutput,
		ToToken:            raw.ToToken,
		OriginalSender:     raw.OriginalSender,
		Recipient:          raw.Recipient,
		PostAction:         postAction,
		DAppTag:            raw.DAppTag,
		DAppMessage:        raw.DAppMessage,
		DAppSourceContract: raw.DAppSourceContract,
		DAppDestContract:   raw.DAppDestContract,
	}

	declared := ActionType(raw.ActionType)
	action, err := decodeAction(declared, raw.Action)
	if err != nil {
		msg.Action = InvalidAction{Declared: declared, Err: err}
	} else {
		msg.Action = action
	}
	return msg, nil
}

func decodeAction(t ActionType, blob []byte) (Action, error) {
	switch t {
	case ActionTypeNone:
		return NoAction{}, nil
	case ActionTypeUniswapV2:
		vals, err := uniswapV2Args.Unpack(blob)
		if err != nil {
			return nil, fmt.Errorf("unpacking uniswap v2 action: %w", err)
		}
		raw := abi.ConvertType(vals[0], new(rawUniswapV2)).(*rawUniswapV2)
		return UniswapV2{
			DexAddress:   raw.DexAddress,
			AmountOutMin: raw.AmountOutMin,
			Path:         raw.Path,
			Deadline:     raw.Deadline,
		}, nil
	case ActionTypeUniswapV3:
		vals, err := uniswapV3Args.Unpack(blob)
		if err != nil {
			return nil, fmt.Errorf("unpacking uniswap v3 action: %w", err)
		}
		raw := abi.ConvertType(vals[0], new(rawUniswapV3)).(*rawUniswapV3)
		return UniswapV3{
			DexAddress:       raw.DexAddress,
			TokenIn:          raw.TokenIn,
			TokenOut:         raw.TokenOut,
			EncodedPath:      raw.EncodedPath,
			Deadline:         raw.Deadline,
			AmountOutMinimum: raw.AmountOutMinimum,
			IsRouter2:        raw.IsRouter2,
		}, nil
	case ActionTypeCall:
		vals, err := callArgs.Unpack(blob)
		if err != nil {
			return nil, fmt.Errorf("unpacking call action: %w", err)
		}
		raw := abi.ConvertType(vals[0], new(rawCall)).(*rawCall)
		preAction, err := subActionFromWire(raw.PreAction)
		if err != nil {
			return nil, fmt.Errorf("decoding pre-action: %w", err)
		}
		return ContractCall{
			TokenIn:             raw.TokenIn,
			Spender:             raw.Spender,
			PreAction:           preAction,
			Target:              raw.Target,
			OverwriteAmount:     raw.OverwriteAmount,
			StartIndexForAmount: raw.StartIndexForAmount,
			CallData:            raw.CallData,
		}, nil
	case ActionTypeCurve:
		vals, err := curveArgs.Unpack(blob)
		if err != nil {
			return nil, fmt.Errorf("unpacking curve action: %w", err)
		}
		raw := abi.ConvertType(vals[0], new(rawCurve)).(*rawCurve)
		return CurveSwap{
			Router:     raw.RouterContractAddress,
			Routes:     raw.Routes,
			SwapParams: raw.SwapParams,
			Expected:   raw.Expected,
			Pools:      raw.Pools,
			ToToken:    raw.ToToken,
		}, nil
	}
	return nil, fmt.Errorf("unknown action type %d", t)
}

// EncodeMessage encodes a message into the wire envelope. Used by source-side
// tooling and tests; the destination path only decodes.
func EncodeMessage(msg *Message) ([]byte, error) {
	blob, actionType, err := EncodeAction(msg.Action)
	if err != nil {
		return nil, err
	}
	dstChainID := msg.DstChainID
	if dstChainID == nil {
		dstChainID = new(big.Int)
	}
	return messageArgs.Pack(rawMessage{
		RequestId:          msg.RequestID,
		DstChainId:         dstChainID,
		BridgeRealOutput:   msg.BridgeRealOutput,
		ToToken:            msg.ToToken,
		OriginalSender:     msg.OriginalSender,
		Recipient:          msg.Recipient,
		ActionType:         uint8(actionType),
		Action:             blob,
		PostAction:         subActionToWire(msg.PostAction),
		DAppTag:            msg.DAppTag,
		DAppMessage:        msg.DAppMessage,
		DAppSourceContract: msg.DAppSourceContract,
		DAppDestContract:   msg.DAppDestContract,
	})
}

// EncodeAction encodes a single action variant into its blob and wire tag.
func EncodeAction(action Action) ([]byte, ActionType, error) {
	switch a := action.(type) {
	case nil, NoAction:
		return nil, ActionTypeNone, nil
	case UniswapV2:
		blob, err := uniswapV2Args.Pack(rawUniswapV2{
			DexAddress:   a.DexAddress,
			AmountOutMin: bigOrZero(a.AmountOutMin),
			Path:         a.Path,
			Deadline:     bigOrZero(a.Deadline),
		})
		return blob, ActionTypeUniswapV2, err
	case UniswapV3:
		blob, err := uniswapV3Args.Pack(rawUniswapV3{
			DexAddress:       a.DexAddress,
			TokenIn:          a.TokenIn,
			TokenOut:         a.TokenOut,
			EncodedPath:      a.EncodedPath,
			Deadline:         bigOrZero(a.Deadline),
			AmountOutMinimum: bigOrZero(a.AmountOutMinimum),
			IsRouter2:        a.IsRouter2,
		})
		return blob, ActionTypeUniswapV3, err
	case ContractCall:
		blob, err := callArgs.Pack(rawCall{
			TokenIn:             a.TokenIn,
			Spender:             a.Spender,
			PreAction:           subActionToWire(a.PreAction),
			Target:              a.Target,
			OverwriteAmount:     a.OverwriteAmount,
			StartIndexForAmount: bigOrZero(a.StartIndexForAmount),
			CallData:            a.CallData,
		})
		return blob, ActionTypeCall, err
	case CurveSwap:
		blob, err := curveArgs.Pack(rawCurve{
			RouterContractAddress: a.Router,
			Routes:                a.Routes,
			SwapParams:            normalizeSwapParams(a.SwapParams),
			Expected:              bigOrZero(a.Expected),
			Pools:                 a.Pools,
			ToToken:               a.ToToken,
		})
		return blob, ActionTypeCurve, err
	}
	return nil, 0, fmt.Errorf("cannot encode action of type %T", action)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func normalizeSwapParams(p [5][5]*big.Int) [5][5]*big.Int {
	for i := range p {
		for j := range p[i] {
			if p[i][j] == nil {
				p[i][j] = new(big.Int)
			}
		}
	}
	return p
}
