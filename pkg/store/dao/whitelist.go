package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// WhitelistContractDao maps directly to the 'whitelist_contracts' table in
// PostgreSQL. Messaging marks contracts that may additionally receive dApp
// message callbacks on settlement.
type WhitelistContractDao struct {
	bun.BaseModel `bun:"table:whitelist_contracts"`

	Address   string    `bun:"address,pk,type:VARCHAR(42)" json:"address"`
	Messaging bool      `bun:"messaging,notnull,default:false" json:"messaging"`
	Note      string    `bun:"note" json:"note,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()" json:"created_at"`
}

// WhitelistMethodDao maps directly to the 'whitelist_methods' table in
// PostgreSQL. Selector is the 0x-prefixed 4-byte function selector.
type WhitelistMethodDao struct {
	bun.BaseModel `bun:"table:whitelist_methods"`

	Address   string    `bun:"address,pk,type:VARCHAR(42)" json:"address"`
	Selector  string    `bun:"selector,pk,type:VARCHAR(10)" json:"selector"`
	Note      string    `bun:"note" json:"note,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:now()" json:"created_at"`
}
