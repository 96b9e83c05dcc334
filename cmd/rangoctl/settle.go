package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/sim"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/interchain"
	"github.com/rango-exchange/router-middleware/pkg/registry"
)

var settleCmd = &cobra.Command{
	Use:   "settle <scenario.yaml>",
	Short: "Run a settlement scenario against a local simulated chain",
	Long: `Run a settlement scenario against a local in-memory chain. The
scenario file describes the tokens, balances, dex and incoming message; the
command executes the full settlement and prints the outcome and every event.

Example scenario:

  wrapped_native:
    address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    symbol: WETH
  tokens:
    - address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
      symbol: USDC
  dex:
    address: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
    rate_bps: 20000
  whitelist:
    - "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
  balances:
    - token: native
      holder: router
      amount: "1000"
    - token: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
      holder: dex
      amount: "5000"
  delivered:
    token: native
    amount: "1000"
  message:
    request_id: "0x0102"
    to_token: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    recipient: "0x1111111111111111111111111111111111111111"
    action:
      type: uniswap_v2
      dex: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
      path:
        - "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
        - "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
      amount_out_min: "1900"`,
	Args: cobra.ExactArgs(1),
	Run:  runSettle,
}

func init() {
	rootCmd.AddCommand(settleCmd)
}

type scenario struct {
	WrappedNative struct {
		Address string `yaml:"address"`
		Symbol  string `yaml:"symbol"`
	} `yaml:"wrapped_native"`
	Tokens []struct {
		Address string `yaml:"address"`
		Symbol  string `yaml:"symbol"`
	} `yaml:"tokens"`
	Dex *struct {
		Address  string `yaml:"address"`
		RateBps  int64  `yaml:"rate_bps"`
		FailWith string `yaml:"fail_with"`
	} `yaml:"dex"`
	Whitelist []string `yaml:"whitelist"`
	Messaging []string `yaml:"messaging"`
	Balances  []struct {
		Token  string `yaml:"token"`
		Holder string `yaml:"holder"`
		Amount string `yaml:"amount"`
	} `yaml:"balances"`
	Delivered struct {
		Token  string `yaml:"token"`
		Amount string `yaml:"amount"`
	} `yaml:"delivered"`
	Message struct {
		RequestID        string `yaml:"request_id"`
		DstChainID       int64  `yaml:"dst_chain_id"`
		BridgeRealOutput bool   `yaml:"bridge_real_output"`
		ToToken          string `yaml:"to_token"`
		Recipient        string `yaml:"recipient"`
		PostAction       string `yaml:"post_action"`
		Action           struct {
			Type         string   `yaml:"type"`
			Dex          string   `yaml:"dex"`
			Path         []string `yaml:"path"`
			AmountOutMin string   `yaml:"amount_out_min"`
			Deadline     int64    `yaml:"deadline"`
		} `yaml:"action"`
	} `yaml:"message"`
}

func runSettle(_ *cobra.Command, args []string) {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		fatal(err)
	}

	var sc scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		fatal(fmt.Errorf("parse scenario: %w", err))
	}

	if err := executeScenario(&sc); err != nil {
		fatal(err)
	}
}

func executeScenario(sc *scenario) error {
	world := sim.NewWorld()
	routerAddr := world.NewAccount()
	host := world.HostFor(routerAddr)

	if !common.IsHexAddress(sc.WrappedNative.Address) {
		return fmt.Errorf("wrapped_native.address is not a valid address")
	}
	weth := common.HexToAddress(sc.WrappedNative.Address)
	symbol := sc.WrappedNative.Symbol
	if symbol == "" {
		symbol = "WETH"
	}
	sim.DeployWrappedNativeAt(world, weth, symbol)

	for _, tok := range sc.Tokens {
		if !common.IsHexAddress(tok.Address) {
			return fmt.Errorf("token %q has an invalid address", tok.Symbol)
		}
		world.CreateTokenAt(common.HexToAddress(tok.Address), tok.Symbol, 0)
	}

	var dexAddr common.Address
	if sc.Dex != nil {
		if !common.IsHexAddress(sc.Dex.Address) {
			return fmt.Errorf("dex.address is not a valid address")
		}
		dexAddr = common.HexToAddress(sc.Dex.Address)
		world.RegisterContract(dexAddr, &sim.FixedRateRouter{
			RateBps:  sc.Dex.RateBps,
			FailWith: sc.Dex.FailWith,
		})
	}

	reg := registry.NewMemoryRegistry(weth)
	for _, addr := range sc.Whitelist {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("whitelist entry %q is not a valid address", addr)
		}
		reg.AddContract(common.HexToAddress(addr))
	}
	for _, addr := range sc.Messaging {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("messaging entry %q is not a valid address", addr)
		}
		reg.AddMessagingContract(common.HexToAddress(addr))
	}

	for i, bal := range sc.Balances {
		amount, err := parseScenarioAmount(bal.Amount)
		if err != nil {
			return fmt.Errorf("balances[%d]: %w", i, err)
		}
		holder, err := resolveHolder(bal.Holder, routerAddr, dexAddr)
		if err != nil {
			return fmt.Errorf("balances[%d]: %w", i, err)
		}
		token, err := resolveToken(bal.Token)
		if err != nil {
			return fmt.Errorf("balances[%d]: %w", i, err)
		}
		if evm.IsNative(token) {
			world.FundNative(holder, amount)
		} else {
			world.Mint(token, holder, amount)
		}
	}

	msg, err := buildScenarioMessage(sc)
	if err != nil {
		return err
	}

	deliveredToken, err := resolveToken(sc.Delivered.Token)
	if err != nil {
		return fmt.Errorf("delivered.token: %w", err)
	}
	deliveredAmount, err := parseScenarioAmount(sc.Delivered.Amount)
	if err != nil {
		return fmt.Errorf("delivered.amount: %w", err)
	}

	sink := &events.MemorySink{}
	dispatcher := interchain.NewDispatcher(host, reg, guard.New(), sink, zap.NewNop())

	res, err := dispatcher.SettleIncoming(context.Background(), deliveredToken, deliveredAmount, msg)
	if err != nil {
		return fmt.Errorf("settlement aborted: %w", err)
	}

	printOutcome(res, sink.Events())
	return nil
}

func buildScenarioMessage(sc *scenario) (*interchain.Message, error) {
	m := &sc.Message

	requestID, err := hex.DecodeString(strings.TrimPrefix(m.RequestID, "0x"))
	if err != nil {
		return nil, fmt.Errorf("message.request_id is not valid hex")
	}
	toToken, err := resolveToken(m.ToToken)
	if err != nil {
		return nil, fmt.Errorf("message.to_token: %w", err)
	}
	if !common.IsHexAddress(m.Recipient) {
		return nil, fmt.Errorf("message.recipient is not a valid address")
	}

	msg := &interchain.Message{
		RequestID:        requestID,
		DstChainID:       big.NewInt(m.DstChainID),
		BridgeRealOutput: m.BridgeRealOutput,
		ToToken:          toToken,
		Recipient:        common.HexToAddress(m.Recipient),
	}

	switch m.PostAction {
	case "", "none":
		msg.PostAction = interchain.SubActionNone
	case "wrap":
		msg.PostAction = interchain.SubActionWrap
	case "unwrap":
		msg.PostAction = interchain.SubActionUnwrap
	default:
		return nil, fmt.Errorf("message.post_action %q is not wrap, unwrap or none", m.PostAction)
	}

	switch m.Action.Type {
	case "", "none":
		msg.Action = interchain.NoAction{}
	case "uniswap_v2":
		if !common.IsHexAddress(m.Action.Dex) {
			return nil, fmt.Errorf("message.action.dex is not a valid address")
		}
		path := make([]common.Address, 0, len(m.Action.Path))
		for _, hop := range m.Action.Path {
			if !common.IsHexAddress(hop) {
				return nil, fmt.Errorf("message.action.path entry %q is not a valid address", hop)
			}
			path = append(path, common.HexToAddress(hop))
		}
		minOut, err := parseScenarioAmount(m.Action.AmountOutMin)
		if err != nil {
			return nil, fmt.Errorf("message.action.amount_out_min: %w", err)
		}
		deadline := m.Action.Deadline
		if deadline == 0 {
			deadline = 9999999999
		}
		msg.Action = interchain.UniswapV2{
			DexAddress:   common.HexToAddress(m.Action.Dex),
			AmountOutMin: minOut,
			Path:         path,
			Deadline:     big.NewInt(deadline),
		}
	default:
		return nil, fmt.Errorf("message.action.type %q is not supported by the CLI", m.Action.Type)
	}

	return msg, nil
}

func resolveToken(s string) (common.Address, error) {
	if s == "" || s == "native" {
		return evm.NativeToken, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("token %q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

func resolveHolder(s string, routerAddr, dexAddr common.Address) (common.Address, error) {
	switch s {
	case "router":
		return routerAddr, nil
	case "dex":
		if dexAddr == (common.Address{}) {
			return common.Address{}, fmt.Errorf("holder is \"dex\" but no dex is defined")
		}
		return dexAddr, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("holder %q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

func parseScenarioAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%q is not a valid amount", s)
	}
	return v, nil
}

func printOutcome(res interchain.SettleResult, evs []events.Event) {
	bold := color.New(color.Bold)

	bold.Println("\nSettlement result")
	statusColor := color.New(color.FgGreen)
	if res.Status != interchain.StatusSucceeded {
		statusColor = color.New(color.FgYellow)
	}
	fmt.Print("  status:    ")
	statusColor.Println(res.Status.String())
	fmt.Printf("  token:     %s\n", res.Token.Hex())
	fmt.Printf("  amount:    %s\n", res.Amount.String())

	bold.Println("\nEvents")
	for _, ev := range evs {
		fmt.Printf("  %-22s %+v\n", ev.EventType(), ev)
	}
	fmt.Println()
}
