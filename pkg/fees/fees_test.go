package fees_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm"
	"github.com/rango-exchange/router-middleware/pkg/evm/sim"
	"github.com/rango-exchange/router-middleware/pkg/fees"
)

func TestValidateBreakdown(t *testing.T) {
	r1 := common.HexToAddress("0x0000000000000000000000000000000000000011")
	r2 := common.HexToAddress("0x0000000000000000000000000000000000000022")

	cases := []struct {
		name    string
		fs      []fees.AffiliateFee
		total   *big.Int
		wantErr bool
	}{
		{
			name: "exact sum",
			fs: []fees.AffiliateFee{
				{Recipient: r1, Amount: big.NewInt(60), FeeType: "affiliate"},
				{Recipient: r2, Amount: big.NewInt(40), FeeType: "platform"},
			},
			total: big.NewInt(100),
		},
		{
			name: "sum mismatch",
			fs: []fees.AffiliateFee{
				{Recipient: r1, Amount: big.NewInt(60), FeeType: "affiliate"},
			},
			total:   big.NewInt(100),
			wantErr: true,
		},
		{
			name: "zero amount entry",
			fs: []fees.AffiliateFee{
				{Recipient: r1, Amount: big.NewInt(0), FeeType: "affiliate"},
			},
			total:   big.NewInt(0),
			wantErr: true,
		},
		{
			name: "nil amount entry",
			fs: []fees.AffiliateFee{
				{Recipient: r1, FeeType: "affiliate"},
			},
			total:   big.NewInt(0),
			wantErr: true,
		},
		{
			name: "null recipient",
			fs: []fees.AffiliateFee{
				{Amount: big.NewInt(100), FeeType: "affiliate"},
			},
			total:   big.NewInt(100),
			wantErr: true,
		},
		{
			name:  "no fees, nil total",
			fs:    nil,
			total: nil,
		},
		{
			name:    "no fees, declared total",
			fs:      nil,
			total:   big.NewInt(5),
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fees.ValidateBreakdown(tc.fs, tc.total)
			if tc.wantErr {
				if !errors.Is(err, fees.ErrInvalidFeeTotal) {
					t.Fatalf("expected ErrInvalidFeeTotal, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDisburse(t *testing.T) {
	w := sim.NewWorld()
	router := w.NewAccount()
	host := w.HostFor(router)
	token := w.CreateToken("TTT", 0)
	r1 := w.NewAccount()
	r2 := w.NewAccount()
	w.Mint(token, router, big.NewInt(100))

	sink := &events.MemorySink{}
	a := fees.NewAccountant(host, sink)

	fs := []fees.AffiliateFee{
		{Recipient: r1, Amount: big.NewInt(60), FeeType: "affiliate"},
		{Recipient: r2, Amount: big.NewInt(40), FeeType: "platform"},
	}
	if err := a.Disburse(context.Background(), token, fs, 7); err != nil {
		t.Fatalf("Disburse: %v", err)
	}

	if got := w.BalanceOf(token, r1); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("r1 = %s", got)
	}
	if got := w.BalanceOf(token, r2); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("r2 = %s", got)
	}
	if got := w.BalanceOf(token, router); got.Sign() != 0 {
		t.Fatalf("router = %s", got)
	}

	evs := sink.Events()
	if len(evs) != 2 {
		t.Fatalf("got %d events", len(evs))
	}
	fee, ok := evs[0].(events.FeeApplied)
	if !ok {
		t.Fatalf("event type %T", evs[0])
	}
	if fee.FeeType != "affiliate" || fee.DAppTag != 7 || fee.Amount.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("event = %+v", fee)
	}
}

func TestDisburseFromPayer(t *testing.T) {
	w := sim.NewWorld()
	router := w.NewAccount()
	host := w.HostFor(router)
	token := w.CreateToken("TTT", 0)
	payer := w.NewAccount()
	recipient := w.NewAccount()
	w.Mint(token, payer, big.NewInt(50))
	if err := w.HostFor(payer).Approve(token, router, big.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	a := fees.NewAccountant(host, &events.MemorySink{})
	fs := []fees.AffiliateFee{{Recipient: recipient, Amount: big.NewInt(50), FeeType: "affiliate"}}

	if err := a.DisburseFromPayer(context.Background(), token, fs, payer, 0); err != nil {
		t.Fatalf("DisburseFromPayer: %v", err)
	}
	if got := w.BalanceOf(token, recipient); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("recipient = %s", got)
	}
	// The router never held the funds.
	if got := w.BalanceOf(token, router); got.Sign() != 0 {
		t.Fatalf("router = %s", got)
	}
}

func TestDisburseFromPayerRejectsNative(t *testing.T) {
	w := sim.NewWorld()
	a := fees.NewAccountant(w.HostFor(w.NewAccount()), &events.MemorySink{})

	fs := []fees.AffiliateFee{{Recipient: w.NewAccount(), Amount: big.NewInt(1), FeeType: "affiliate"}}
	err := a.DisburseFromPayer(context.Background(), evm.NativeToken, fs, w.NewAccount(), 0)
	if err == nil {
		t.Fatal("expected error for native token")
	}
}

func TestTotal(t *testing.T) {
	fs := []fees.AffiliateFee{
		{Amount: big.NewInt(30)},
		{Amount: nil},
		{Amount: big.NewInt(12)},
	}
	if got := fees.Total(fs); got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("Total = %s", got)
	}
	if got := fees.Total(nil); got.Sign() != 0 {
		t.Fatalf("Total(nil) = %s", got)
	}
}
