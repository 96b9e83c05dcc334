package dao

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// SettlementEventDao maps directly to the 'settlement_events' table in
// PostgreSQL. One row per emitted router event; the table is the queryable
// history behind the events API.
type SettlementEventDao struct {
	bun.BaseModel `bun:"table:settlement_events"`

	ID        int64           `bun:"id,pk,autoincrement" json:"id"`
	RequestID string          `bun:"request_id,type:VARCHAR(66)" json:"request_id"`
	EventType string          `bun:"event_type,notnull,type:VARCHAR(50)" json:"event_type"`
	Token     string          `bun:"token,type:VARCHAR(42)" json:"token,omitempty"`
	Recipient string          `bun:"recipient,type:VARCHAR(42)" json:"recipient,omitempty"`
	Amount    decimal.Decimal `bun:"amount,notnull,type:NUMERIC(78,0)" json:"amount"`
	Status    string          `bun:"status,type:VARCHAR(40)" json:"status,omitempty"`
	FeeType   string          `bun:"fee_type,type:VARCHAR(40)" json:"fee_type,omitempty"`
	DAppTag   int32           `bun:"dapp_tag" json:"dapp_tag"`
	DAppName  string          `bun:"dapp_name,type:VARCHAR(100)" json:"dapp_name,omitempty"`
	Detail    string          `bun:"detail" json:"detail,omitempty"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:now()" json:"created_at"`
}
