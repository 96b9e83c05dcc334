package evm

import (
	"errors"
	"math/big"
)

// ErrSpliceOutOfBounds is returned when an amount-overwrite index would write
// into the selector or past the end of the calldata.
var ErrSpliceOutOfBounds = errors.New("amount splice index out of bounds")

// SpliceAmount writes the 32-byte big-endian encoding of amount into a copy
// of callData starting at index. The index must leave the 4-byte function
// selector intact and leave room for a full word; anything else fails closed.
//
// This is how a destination call receives the actual settled amount even
// though its calldata was assembled off-chain before the amount was known.
func SpliceAmount(callData []byte, index int, amount *big.Int) ([]byte, error) {
	if index < 4 || index+32 > len(callData) {
		return nil, ErrSpliceOutOfBounds
	}
	out := make([]byte, len(callData))
	copy(out, callData)
	amount.FillBytes(out[index : index+32])
	return out, nil
}

// Selector returns the leading 4-byte function selector of calldata, or false
// when the calldata is too short to carry one.
func Selector(callData []byte) ([4]byte, bool) {
	var sel [4]byte
	if len(callData) < 4 {
		return sel, false
	}
	copy(sel[:], callData[:4])
	return sel, true
}
