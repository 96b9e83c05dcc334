package registry_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/registry"
)

func TestMemoryRegistryContractsAndMethods(t *testing.T) {
	wrapped := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	dex := common.HexToAddress("0x0000000000000000000000000000000000000011")
	swapSel := [4]byte{0x38, 0xed, 0x17, 0x39}
	exactSel := [4]byte{0x04, 0xe4, 0x5a, 0xaf}

	r := registry.NewMemoryRegistry(wrapped)

	if r.IsContractWhitelisted(dex) {
		t.Fatal("empty registry whitelists contract")
	}
	r.AddContract(dex)
	r.AddMethod(dex, swapSel)

	if !r.IsContractWhitelisted(dex) {
		t.Fatal("contract not whitelisted after add")
	}
	if !r.IsMethodWhitelisted(dex, swapSel) {
		t.Fatal("method not whitelisted after add")
	}
	if r.IsMethodWhitelisted(dex, exactSel) {
		t.Fatal("unrelated selector whitelisted")
	}

	r.RemoveMethod(dex, swapSel)
	if r.IsMethodWhitelisted(dex, swapSel) {
		t.Fatal("method survives removal")
	}
	if !r.IsContractWhitelisted(dex) {
		t.Fatal("method removal dropped the contract")
	}

	if r.WrappedNative() != wrapped {
		t.Fatalf("wrapped native = %s", r.WrappedNative().Hex())
	}
}

func TestMemoryRegistryRemoveContractDropsMethods(t *testing.T) {
	dex := common.HexToAddress("0x0000000000000000000000000000000000000011")
	other := common.HexToAddress("0x0000000000000000000000000000000000000022")
	sel := [4]byte{0x38, 0xed, 0x17, 0x39}

	r := registry.NewMemoryRegistry(common.Address{})
	r.AddContract(dex)
	r.AddMethod(dex, sel)
	r.AddContract(other)
	r.AddMethod(other, sel)

	r.RemoveContract(dex)

	if r.IsContractWhitelisted(dex) || r.IsMethodWhitelisted(dex, sel) {
		t.Fatal("removed contract still whitelisted")
	}
	if !r.IsContractWhitelisted(other) || !r.IsMethodWhitelisted(other, sel) {
		t.Fatal("removal leaked into another contract")
	}
}

func TestMemoryRegistryMessagingContracts(t *testing.T) {
	dapp := common.HexToAddress("0x0000000000000000000000000000000000000033")

	r := registry.NewMemoryRegistry(common.Address{})
	if r.IsMessagingContractWhitelisted(dapp) {
		t.Fatal("empty registry whitelists messaging dApp")
	}
	r.AddMessagingContract(dapp)
	if !r.IsMessagingContractWhitelisted(dapp) {
		t.Fatal("messaging dApp not whitelisted after add")
	}
	// Messaging and call whitelists are separate namespaces.
	if r.IsContractWhitelisted(dapp) {
		t.Fatal("messaging add leaked into the call whitelist")
	}
	r.RemoveMessagingContract(dapp)
	if r.IsMessagingContractWhitelisted(dapp) {
		t.Fatal("messaging dApp survives removal")
	}
}
