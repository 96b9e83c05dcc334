package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Host is the contract-side view of an EVM chain, bound to one account (the
// router contract). All token amounts are denominated in the token's smallest
// unit. A token equal to NativeToken addresses the native coin; BalanceOf then
// reads the native balance and Transfer moves native value.
//
// Calls are synchronous sub-executions: a non-nil error means the callee
// reverted and any state it touched was rolled back.
type Host interface {
	// Self returns the account this host is bound to.
	Self() common.Address

	// BalanceOf returns the current holdings of token for holder.
	BalanceOf(token, holder common.Address) (*big.Int, error)

	// Transfer moves amount of token from the bound account to recipient.
	Transfer(token, to common.Address, amount *big.Int) error

	// TransferFrom pulls amount of token from owner to recipient using the
	// allowance granted to the bound account. Not valid for NativeToken.
	TransferFrom(token, from, to common.Address, amount *big.Int) error

	// Approve sets the allowance of spender over the bound account's token.
	Approve(token, spender common.Address, amount *big.Int) error

	// Allowance returns the allowance of spender over owner's token.
	Allowance(token, owner, spender common.Address) (*big.Int, error)

	// Call invokes target with the given input, attaching value in native
	// coin. The returned error is a *RevertError when the callee reverted
	// with decodable return data.
	Call(target common.Address, value *big.Int, input []byte) ([]byte, error)
}
