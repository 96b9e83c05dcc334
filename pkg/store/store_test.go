package store_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/migrations/routerdb"
	"github.com/rango-exchange/router-middleware/pkg/pgutil"
	"github.com/rango-exchange/router-middleware/pkg/store"

	"github.com/ethereum/go-ethereum/common"
)

func setupStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	db, cleanup := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, routerdb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		cleanup()
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		cleanup()
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db), cleanup
}

func TestWhitelistContractLifecycle(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	addr := "0xAb5801a7D398351b8bE11C439e05C5b3259aec9B"

	ok, err := s.IsContractWhitelisted(ctx, addr)
	if err != nil {
		t.Fatalf("IsContractWhitelisted: %v", err)
	}
	if ok {
		t.Fatal("address whitelisted before being added")
	}

	if err := s.AddContract(ctx, addr, false, "uniswap v2 router"); err != nil {
		t.Fatalf("AddContract: %v", err)
	}

	// Lookups are case-insensitive on the address.
	ok, err = s.IsContractWhitelisted(ctx, "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if err != nil {
		t.Fatalf("IsContractWhitelisted: %v", err)
	}
	if !ok {
		t.Fatal("address not whitelisted after AddContract")
	}

	// Not a messaging contract unless flagged.
	ok, err = s.IsMessagingContractWhitelisted(ctx, addr)
	if err != nil {
		t.Fatalf("IsMessagingContractWhitelisted: %v", err)
	}
	if ok {
		t.Fatal("contract reported as messaging without the flag")
	}

	// Upsert with the messaging flag.
	if err := s.AddContract(ctx, addr, true, "dapp receiver"); err != nil {
		t.Fatalf("AddContract upsert: %v", err)
	}
	ok, err = s.IsMessagingContractWhitelisted(ctx, addr)
	if err != nil {
		t.Fatalf("IsMessagingContractWhitelisted: %v", err)
	}
	if !ok {
		t.Fatal("messaging flag not updated by upsert")
	}

	if err := s.RemoveContract(ctx, addr); err != nil {
		t.Fatalf("RemoveContract: %v", err)
	}
	ok, err = s.IsContractWhitelisted(ctx, addr)
	if err != nil {
		t.Fatalf("IsContractWhitelisted: %v", err)
	}
	if ok {
		t.Fatal("address still whitelisted after removal")
	}
}

func TestWhitelistMethodsRemovedWithContract(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	addr := "0x1111111111111111111111111111111111111111"
	sel := "0x38ed1739"

	if err := s.AddContract(ctx, addr, false, ""); err != nil {
		t.Fatalf("AddContract: %v", err)
	}
	if err := s.AddMethod(ctx, addr, sel, "swapExactTokensForTokens"); err != nil {
		t.Fatalf("AddMethod: %v", err)
	}

	ok, err := s.IsMethodWhitelisted(ctx, addr, sel)
	if err != nil {
		t.Fatalf("IsMethodWhitelisted: %v", err)
	}
	if !ok {
		t.Fatal("method not whitelisted after AddMethod")
	}

	if err := s.RemoveContract(ctx, addr); err != nil {
		t.Fatalf("RemoveContract: %v", err)
	}
	ok, err = s.IsMethodWhitelisted(ctx, addr, sel)
	if err != nil {
		t.Fatalf("IsMethodWhitelisted: %v", err)
	}
	if ok {
		t.Fatal("method survived contract removal")
	}
}

func TestSinkPersistsEvents(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	sink := store.NewSink(s, zap.NewNop())
	sink.Emit(ctx, events.BridgeCompleted{
		RequestID: []byte{0xaa, 0xbb},
		Token:     common.HexToAddress("0x2222"),
		Recipient: common.HexToAddress("0x3333"),
		Amount:    big.NewInt(123456),
		Status:    "succeeded",
		DAppTag:   7,
	})
	sink.Emit(ctx, events.FeeApplied{
		Token:     common.HexToAddress("0x2222"),
		Recipient: common.HexToAddress("0x4444"),
		Amount:    big.NewInt(600),
		FeeType:   "affiliate",
	})

	rows, err := s.ListEvents(ctx, "0xaabb", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows for request, want 1", len(rows))
	}
	ev := rows[0]
	if ev.EventType != "bridge_completed" {
		t.Fatalf("event_type = %s", ev.EventType)
	}
	if ev.Status != "succeeded" {
		t.Fatalf("status = %s", ev.Status)
	}
	if ev.Amount.String() != "123456" {
		t.Fatalf("amount = %s", ev.Amount)
	}
	if ev.DAppTag != 7 {
		t.Fatalf("dapp_tag = %d", ev.DAppTag)
	}

	all, err := s.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rows total, want 2", len(all))
	}
}
