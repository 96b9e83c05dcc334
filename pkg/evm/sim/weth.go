package sim

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/abis"
)

// wrappedNative is the canonical WETH-style contract: deposit mints the
// wrapped token one-to-one against attached native value, withdraw burns it
// and pays native back out.
type wrappedNative struct {
	token common.Address
}

// DeployWrappedNative creates the wrapped-native token and registers its
// contract code at the same address, like WETH on mainnet.
func DeployWrappedNative(w *World, symbol string) common.Address {
	addr := w.CreateToken(symbol, 0)
	w.RegisterContract(addr, &wrappedNative{token: addr})
	return addr
}

// DeployWrappedNativeAt registers the wrapped-native contract at a known
// address, matching a configured chain deployment.
func DeployWrappedNativeAt(w *World, addr common.Address, symbol string) {
	w.CreateTokenAt(addr, symbol, 0)
	w.RegisterContract(addr, &wrappedNative{token: addr})
}

func (c *wrappedNative) Run(call *CallContext) ([]byte, error) {
	sel, ok := evm.Selector(call.Input)
	if !ok {
		// Plain value transfer falls through to deposit, like WETH's fallback.
		call.World.tokens[c.token].credit(call.Caller, call.Value)
		return nil, nil
	}
	switch {
	case bytes.Equal(sel[:], abis.WrappedNative.Methods["deposit"].ID):
		if call.Value.Sign() <= 0 {
			return nil, evm.Revert("deposit requires value")
		}
		call.World.tokens[c.token].credit(call.Caller, call.Value)
		return nil, nil

	case bytes.Equal(sel[:], abis.WrappedNative.Methods["withdraw"].ID):
		vals, err := abis.WrappedNative.Methods["withdraw"].Inputs.Unpack(call.Input[4:])
		if err != nil {
			return nil, evm.Revert("bad withdraw calldata")
		}
		wad := vals[0].(*big.Int)
		if err := call.World.tokens[c.token].debit(call.Caller, wad); err != nil {
			return nil, err
		}
		if err := call.World.debitNative(c.token, wad); err != nil {
			return nil, err
		}
		call.World.creditNative(call.Caller, wad)
		return nil, nil
	}
	return nil, evm.Revert("unknown method")
}
