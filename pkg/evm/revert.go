package evm

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RevertError is returned by Host.Call when the callee reverted. Data holds
// the raw revert return data; Reason is the decoded Error(string) payload
// when one was present.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	return "execution reverted"
}

// NewRevertError builds a RevertError from raw revert return data, decoding
// an Error(string) payload when present.
func NewRevertError(data []byte) *RevertError {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		reason = ""
	}
	return &RevertError{Reason: reason, Data: data}
}

// Revert builds a RevertError carrying a plain reason string, as a Solidity
// require(false, reason) would produce.
func Revert(reason string) *RevertError {
	return &RevertError{Reason: reason}
}
