// Package abis holds the parsed ABI fragments for every external contract
// shape the router talks to on the destination side: the wrapped-native
// token, the two Uniswap router generations, the Curve exchange router and
// the dApp message receiver.
package abis

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const wrappedNativeJSON = `[
	{"name":"deposit","type":"function","stateMutability":"payable","inputs":[],"outputs":[]},
	{"name":"withdraw","type":"function","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]}
]`

const uniswapV2JSON = `[
	{"name":"swapExactTokensForTokens","type":"function","inputs":[
		{"name":"amountIn","type":"uint256"},
		{"name":"amountOutMin","type":"uint256"},
		{"name":"path","type":"address[]"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}
	],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

// SwapRouter (V3 generation 1) keeps the deadline inside the params struct.
const uniswapV3JSON = `[
	{"name":"exactInput","type":"function","stateMutability":"payable","inputs":[
		{"name":"params","type":"tuple","components":[
			{"name":"path","type":"bytes"},
			{"name":"recipient","type":"address"},
			{"name":"deadline","type":"uint256"},
			{"name":"amountIn","type":"uint256"},
			{"name":"amountOutMinimum","type":"uint256"}
		]}
	],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// SwapRouter02 dropped the deadline field, which changes the selector.
const uniswapV3Router2JSON = `[
	{"name":"exactInput","type":"function","stateMutability":"payable","inputs":[
		{"name":"params","type":"tuple","components":[
			{"name":"path","type":"bytes"},
			{"name":"recipient","type":"address"},
			{"name":"amountIn","type":"uint256"},
			{"name":"amountOutMinimum","type":"uint256"}
		]}
	],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

const curveRouterJSON = `[
	{"name":"exchange","type":"function","stateMutability":"payable","inputs":[
		{"name":"_route","type":"address[11]"},
		{"name":"_swap_params","type":"uint256[5][5]"},
		{"name":"_amount","type":"uint256"},
		{"name":"_expected","type":"uint256"},
		{"name":"_pools","type":"address[5]"}
	],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

const messageReceiverJSON = `[
	{"name":"handleRangoMessage","type":"function","inputs":[
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"status","type":"uint8"},
		{"name":"message","type":"bytes"}
	],"outputs":[]}
]`

var (
	WrappedNative   abi.ABI
	UniswapV2       abi.ABI
	UniswapV3       abi.ABI
	UniswapV3R2     abi.ABI
	CurveRouter     abi.ABI
	MessageReceiver abi.ABI
)

func init() {
	WrappedNative = mustParse(wrappedNativeJSON)
	UniswapV2 = mustParse(uniswapV2JSON)
	UniswapV3 = mustParse(uniswapV3JSON)
	UniswapV3R2 = mustParse(uniswapV3Router2JSON)
	CurveRouter = mustParse(curveRouterJSON)
	MessageReceiver = mustParse(messageReceiverJSON)
}

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
