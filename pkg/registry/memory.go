package registry

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type methodKey struct {
	addr     common.Address
	selector [4]byte
}

// MemoryRegistry is the in-process Registry implementation. It is what the
// dispatcher and executor consult on the hot path; the Postgres store only
// persists entries and hydrates this at startup.
type MemoryRegistry struct {
	mu        sync.RWMutex
	contracts map[common.Address]struct{}
	methods   map[methodKey]struct{}
	messaging map[common.Address]struct{}
	wrapped   common.Address
}

// NewMemoryRegistry creates an empty registry for the chain whose
// wrapped-native token lives at wrappedNative.
func NewMemoryRegistry(wrappedNative common.Address) *MemoryRegistry {
	return &MemoryRegistry{
		contracts: make(map[common.Address]struct{}),
		methods:   make(map[methodKey]struct{}),
		messaging: make(map[common.Address]struct{}),
		wrapped:   wrappedNative,
	}
}

// AddContract whitelists a contract address.
func (r *MemoryRegistry) AddContract(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[addr] = struct{}{}
}

// RemoveContract removes a contract and all of its whitelisted methods.
func (r *MemoryRegistry) RemoveContract(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contracts, addr)
	for k := range r.methods {
		if k.addr == addr {
			delete(r.methods, k)
		}
	}
}

// AddMethod whitelists a selector on a contract.
func (r *MemoryRegistry) AddMethod(addr common.Address, selector [4]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[methodKey{addr: addr, selector: selector}] = struct{}{}
}

// RemoveMethod removes a selector from a contract's whitelist.
func (r *MemoryRegistry) RemoveMethod(addr common.Address, selector [4]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.methods, methodKey{addr: addr, selector: selector})
}

// AddMessagingContract whitelists a dApp receiver.
func (r *MemoryRegistry) AddMessagingContract(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messaging[addr] = struct{}{}
}

// RemoveMessagingContract removes a dApp receiver.
func (r *MemoryRegistry) RemoveMessagingContract(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messaging, addr)
}

func (r *MemoryRegistry) IsContractWhitelisted(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contracts[addr]
	return ok
}

func (r *MemoryRegistry) IsMethodWhitelisted(addr common.Address, selector [4]byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.methods[methodKey{addr: addr, selector: selector}]
	return ok
}

func (r *MemoryRegistry) IsMessagingContractWhitelisted(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.messaging[addr]
	return ok
}

func (r *MemoryRegistry) WrappedNative() common.Address {
	return r.wrapped
}
