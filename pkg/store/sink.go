package store

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/store/dao"
)

// Sink persists emitted router events as settlement_events rows. Persistence
// failures are logged and swallowed: the settlement already happened, losing
// a history row must not fail it.
type Sink struct {
	store  *Store
	logger *zap.Logger
}

// NewSink creates an event sink writing into the store
func NewSink(s *Store, logger *zap.Logger) *Sink {
	return &Sink{store: s, logger: logger}
}

func (s *Sink) Emit(ctx context.Context, ev events.Event) {
	row := toRow(ev)
	if row == nil {
		return
	}
	if err := s.store.InsertEvent(ctx, row); err != nil {
		s.logger.Error("failed to persist settlement event",
			zap.String("event_type", ev.EventType()),
			zap.Error(err))
	}
}

func toRow(ev events.Event) *dao.SettlementEventDao {
	switch e := ev.(type) {
	case events.SwapCompleted:
		return &dao.SettlementEventDao{
			RequestID: hexID(e.RequestID),
			EventType: e.EventType(),
			Token:     e.ToToken.Hex(),
			Recipient: e.Receiver.Hex(),
			Amount:    decimalFromBig(e.Output),
			DAppTag:   int32(e.DAppTag),
			DAppName:  e.DAppName,
		}
	case events.FeeApplied:
		return &dao.SettlementEventDao{
			EventType: e.EventType(),
			Token:     e.Token.Hex(),
			Recipient: e.Recipient.Hex(),
			Amount:    decimalFromBig(e.Amount),
			FeeType:   e.FeeType,
			DAppTag:   int32(e.DAppTag),
		}
	case events.BridgeInitiated:
		return &dao.SettlementEventDao{
			RequestID: hexID(e.RequestID),
			EventType: e.EventType(),
			Token:     e.Token.Hex(),
			Amount:    decimalFromBig(e.Amount),
			DAppTag:   int32(e.DAppTag),
			DAppName:  e.DAppName,
		}
	case events.BridgeCompleted:
		return &dao.SettlementEventDao{
			RequestID: hexID(e.RequestID),
			EventType: e.EventType(),
			Token:     e.Token.Hex(),
			Recipient: e.Recipient.Hex(),
			Amount:    decimalFromBig(e.Amount),
			Status:    e.Status,
			DAppTag:   int32(e.DAppTag),
		}
	case events.DAppCallbackResult:
		status := "ok"
		if !e.OK {
			status = "failed"
		}
		return &dao.SettlementEventDao{
			RequestID: hexID(e.RequestID),
			EventType: e.EventType(),
			Recipient: e.DApp.Hex(),
			Status:    status,
			Detail:    e.Reason,
		}
	}
	return nil
}

func hexID(id []byte) string {
	if len(id) == 0 {
		return ""
	}
	return "0x" + common.Bytes2Hex(id)
}

func decimalFromBig(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}
