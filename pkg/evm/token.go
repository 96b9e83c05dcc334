// Package evm defines the execution-host seam the router core runs against:
// token identity, the Host interface and revert decoding. Everything above
// this package measures effects through balance diffs rather than trusting
// return values, so Host deliberately exposes raw balance reads and calls.
package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel token address denoting the chain's native coin.
var NativeToken = common.Address{}

// MaxAllowance is the 2^256-1 allowance used by the approve-max discipline.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// NativeAlias is the 0xeeee…eeee convention address some protocols (Curve
// among them) use for the native coin in place of the zero sentinel.
var NativeAlias = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// IsNative reports whether token is the native-coin sentinel.
func IsNative(token common.Address) bool {
	return token == NativeToken
}
