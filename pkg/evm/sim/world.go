// Package sim provides an in-memory EVM-shaped world implementing evm.Host.
// It backs the router's tests, the rangoctl settle command and the settlement
// simulation service: ERC-20 ledgers with optional transfer fees, native
// balances, registered contracts and synchronous calls with revert rollback.
package sim

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/evm"
)

// Contract is a piece of code registered at an address in the world.
type Contract interface {
	Run(call *CallContext) ([]byte, error)
}

// CallContext carries one call frame into a contract.
type CallContext struct {
	World  *World
	Self   common.Address
	Caller common.Address
	Value  *big.Int
	Input  []byte
}

// Transfer moves tokens out of the contract's own balance.
func (c *CallContext) Transfer(token, to common.Address, amount *big.Int) error {
	return c.World.transfer(token, c.Self, to, amount)
}

// TransferFrom pulls tokens using the allowance granted to the contract.
func (c *CallContext) TransferFrom(token, from, to common.Address, amount *big.Int) error {
	return c.World.transferFrom(token, c.Self, from, to, amount)
}

type tokenState struct {
	symbol         string
	transferFeeBps int64
	balances       map[common.Address]*big.Int
	allowances     map[common.Address]map[common.Address]*big.Int
}

// World is the mutable chain state. It is not safe for concurrent use; the
// router serializes custody-bearing work through its re-entrancy guard.
type World struct {
	tokens    map[common.Address]*tokenState
	native    map[common.Address]*big.Int
	contracts map[common.Address]Contract
	nextAddr  uint64
	depth     int
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		tokens:    make(map[common.Address]*tokenState),
		native:    make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]Contract),
		nextAddr:  0x1000,
	}
}

// NewAccount allocates a fresh address with no code and no balances.
func (w *World) NewAccount() common.Address {
	w.nextAddr++
	return common.BigToAddress(new(big.Int).SetUint64(w.nextAddr))
}

// CreateToken registers an ERC-20 ledger. transferFeeBps, when non-zero, is
// burned from every transfer on the recipient side, which is exactly the
// token behavior balance-diff accounting exists to survive.
func (w *World) CreateToken(symbol string, transferFeeBps int64) common.Address {
	addr := w.NewAccount()
	w.CreateTokenAt(addr, symbol, transferFeeBps)
	return addr
}

// CreateTokenAt registers an ERC-20 ledger at a specific address, for setups
// that mirror a configured chain deployment.
func (w *World) CreateTokenAt(addr common.Address, symbol string, transferFeeBps int64) {
	w.tokens[addr] = &tokenState{
		symbol:         symbol,
		transferFeeBps: transferFeeBps,
		balances:       make(map[common.Address]*big.Int),
		allowances:     make(map[common.Address]map[common.Address]*big.Int),
	}
}

// DeployContract registers code at a fresh address.
func (w *World) DeployContract(c Contract) common.Address {
	addr := w.NewAccount()
	w.contracts[addr] = c
	return addr
}

// RegisterContract registers code at a specific address.
func (w *World) RegisterContract(addr common.Address, c Contract) {
	w.contracts[addr] = c
}

// Mint credits holder with amount of token.
func (w *World) Mint(token, holder common.Address, amount *big.Int) {
	t := w.tokens[token]
	if t == nil {
		panic(fmt.Sprintf("sim: mint on unknown token %s", token.Hex()))
	}
	t.credit(holder, amount)
}

// FundNative credits holder with native coin.
func (w *World) FundNative(holder common.Address, amount *big.Int) {
	w.creditNative(holder, amount)
}

// BalanceOf returns holder's balance of token (native for the sentinel).
func (w *World) BalanceOf(token, holder common.Address) *big.Int {
	if evm.IsNative(token) {
		if b, ok := w.native[holder]; ok {
			return new(big.Int).Set(b)
		}
		return new(big.Int)
	}
	t := w.tokens[token]
	if t == nil {
		return new(big.Int)
	}
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// HostFor binds the world to an account and returns the evm.Host view the
// router core operates through.
func (w *World) HostFor(self common.Address) evm.Host {
	return &host{w: w, self: self}
}

func (t *tokenState) credit(holder common.Address, amount *big.Int) {
	if b, ok := t.balances[holder]; ok {
		b.Add(b, amount)
		return
	}
	t.balances[holder] = new(big.Int).Set(amount)
}

func (t *tokenState) debit(holder common.Address, amount *big.Int) error {
	b := t.balances[holder]
	if b == nil {
		if amount.Sign() == 0 {
			return nil
		}
		return evm.Revert("ERC20: transfer amount exceeds balance")
	}
	if b.Cmp(amount) < 0 {
		return evm.Revert("ERC20: transfer amount exceeds balance")
	}
	b.Sub(b, amount)
	return nil
}

func (w *World) creditNative(holder common.Address, amount *big.Int) {
	if b, ok := w.native[holder]; ok {
		b.Add(b, amount)
		return
	}
	w.native[holder] = new(big.Int).Set(amount)
}

func (w *World) debitNative(holder common.Address, amount *big.Int) error {
	b := w.native[holder]
	if b == nil {
		if amount.Sign() == 0 {
			return nil
		}
		return evm.Revert("insufficient native balance")
	}
	if b.Cmp(amount) < 0 {
		return evm.Revert("insufficient native balance")
	}
	b.Sub(b, amount)
	return nil
}

func (w *World) transfer(token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return evm.Revert("negative amount")
	}
	if evm.IsNative(token) {
		if err := w.debitNative(from, amount); err != nil {
			return err
		}
		w.creditNative(to, amount)
		return nil
	}
	t := w.tokens[token]
	if t == nil {
		return evm.Revert("unknown token")
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	received := new(big.Int).Set(amount)
	if t.transferFeeBps > 0 {
		fee := new(big.Int).Mul(amount, big.NewInt(t.transferFeeBps))
		fee.Div(fee, big.NewInt(10000))
		received.Sub(received, fee)
	}
	t.credit(to, received)
	return nil
}

func (w *World) approve(token, owner, spender common.Address, amount *big.Int) error {
	t := w.tokens[token]
	if t == nil {
		return evm.Revert("unknown token")
	}
	m := t.allowances[owner]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

func (w *World) allowance(token, owner, spender common.Address) *big.Int {
	t := w.tokens[token]
	if t == nil {
		return new(big.Int)
	}
	if m := t.allowances[owner]; m != nil {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

func (w *World) transferFrom(token, spender, from, to common.Address, amount *big.Int) error {
	t := w.tokens[token]
	if t == nil {
		return evm.Revert("unknown token")
	}
	a := w.allowance(token, from, spender)
	if a.Cmp(amount) < 0 {
		return evm.Revert("ERC20: insufficient allowance")
	}
	if a.Cmp(evm.MaxAllowance) < 0 {
		t.allowances[from][spender] = a.Sub(a, amount)
	}
	return w.transfer(token, from, to, amount)
}

// call runs a synchronous sub-execution. The outermost frame snapshots state
// and restores it when the callee reverts, so a caught failure leaves
// balances exactly as they were.
func (w *World) call(caller, target common.Address, value *big.Int, input []byte) ([]byte, error) {
	var snap *worldSnapshot
	if w.depth == 0 {
		snap = w.snapshot()
	}
	w.depth++
	out, err := w.execute(caller, target, value, input)
	w.depth--
	if err != nil && snap != nil {
		w.restore(snap)
	}
	return out, err
}

func (w *World) execute(caller, target common.Address, value *big.Int, input []byte) ([]byte, error) {
	if value != nil && value.Sign() > 0 {
		if err := w.debitNative(caller, value); err != nil {
			return nil, err
		}
		w.creditNative(target, value)
	}
	c := w.contracts[target]
	if c == nil {
		if len(input) > 0 {
			return nil, evm.Revert("no code at target")
		}
		return nil, nil
	}
	if value == nil {
		value = new(big.Int)
	}
	return c.Run(&CallContext{World: w, Self: target, Caller: caller, Value: value, Input: input})
}

type worldSnapshot struct {
	tokens map[common.Address]*tokenState
	native map[common.Address]*big.Int
}

func (w *World) snapshot() *worldSnapshot {
	s := &worldSnapshot{
		tokens: make(map[common.Address]*tokenState, len(w.tokens)),
		native: make(map[common.Address]*big.Int, len(w.native)),
	}
	for addr, t := range w.tokens {
		ct := &tokenState{
			symbol:         t.symbol,
			transferFeeBps: t.transferFeeBps,
			balances:       make(map[common.Address]*big.Int, len(t.balances)),
			allowances:     make(map[common.Address]map[common.Address]*big.Int, len(t.allowances)),
		}
		for h, b := range t.balances {
			ct.balances[h] = new(big.Int).Set(b)
		}
		for o, m := range t.allowances {
			cm := make(map[common.Address]*big.Int, len(m))
			for sp, a := range m {
				cm[sp] = new(big.Int).Set(a)
			}
			ct.allowances[o] = cm
		}
		s.tokens[addr] = ct
	}
	for h, b := range w.native {
		s.native[h] = new(big.Int).Set(b)
	}
	return s
}

func (w *World) restore(s *worldSnapshot) {
	w.tokens = s.tokens
	w.native = s.native
}

type host struct {
	w    *World
	self common.Address
}

func (h *host) Self() common.Address { return h.self }

func (h *host) BalanceOf(token, holder common.Address) (*big.Int, error) {
	return h.w.BalanceOf(token, holder), nil
}

func (h *host) Transfer(token, to common.Address, amount *big.Int) error {
	return h.w.transfer(token, h.self, to, amount)
}

func (h *host) TransferFrom(token, from, to common.Address, amount *big.Int) error {
	return h.w.transferFrom(token, h.self, from, to, amount)
}

func (h *host) Approve(token, spender common.Address, amount *big.Int) error {
	return h.w.approve(token, h.self, spender, amount)
}

func (h *host) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	return h.w.allowance(token, owner, spender), nil
}

func (h *host) Call(target common.Address, value *big.Int, input []byte) ([]byte, error) {
	return h.w.call(h.self, target, value, input)
}
