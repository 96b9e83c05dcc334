// Package registry answers "is this contract, method or messaging dApp
// allowed" for the router core. The core treats the registry as authoritative
// and performs no caching: entries may change between two settlements.
package registry

import (
	"github.com/ethereum/go-ethereum/common"
)

// Registry is the whitelist surface consumed by the swap executor and the
// settlement dispatcher.
type Registry interface {
	// IsContractWhitelisted reports whether addr may be called or approved.
	IsContractWhitelisted(addr common.Address) bool

	// IsMethodWhitelisted reports whether the 4-byte selector may be invoked
	// on addr.
	IsMethodWhitelisted(addr common.Address, selector [4]byte) bool

	// IsMessagingContractWhitelisted reports whether addr may receive dApp
	// messages on settlement.
	IsMessagingContractWhitelisted(addr common.Address) bool

	// WrappedNative returns this chain's wrapped-native token address.
	WrappedNative() common.Address
}
