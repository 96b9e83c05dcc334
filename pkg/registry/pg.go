package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/internal/metrics"
	"github.com/rango-exchange/router-middleware/pkg/store"
)

// PgRegistry answers whitelist checks from the PostgreSQL store. Lookups fail
// closed: a database error denies the call rather than letting an unverified
// contract touch custody.
type PgRegistry struct {
	store         *store.Store
	wrappedNative common.Address
	logger        *zap.Logger
}

func NewPgRegistry(s *store.Store, wrappedNative common.Address, logger *zap.Logger) *PgRegistry {
	return &PgRegistry{store: s, wrappedNative: wrappedNative, logger: logger}
}

func (r *PgRegistry) IsContractWhitelisted(addr common.Address) bool {
	ok, err := r.store.IsContractWhitelisted(context.Background(), addr.Hex())
	if err != nil {
		r.logger.Error("whitelist lookup failed", zap.String("address", addr.Hex()), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("registry", "lookup_failed").Inc()
		return false
	}
	return ok
}

func (r *PgRegistry) IsMethodWhitelisted(addr common.Address, selector [4]byte) bool {
	ok, err := r.store.IsMethodWhitelisted(context.Background(), addr.Hex(), SelectorHex(selector))
	if err != nil {
		r.logger.Error("method whitelist lookup failed", zap.String("address", addr.Hex()), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("registry", "lookup_failed").Inc()
		return false
	}
	return ok
}

func (r *PgRegistry) IsMessagingContractWhitelisted(addr common.Address) bool {
	ok, err := r.store.IsMessagingContractWhitelisted(context.Background(), addr.Hex())
	if err != nil {
		r.logger.Error("messaging whitelist lookup failed", zap.String("address", addr.Hex()), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("registry", "lookup_failed").Inc()
		return false
	}
	return ok
}

func (r *PgRegistry) WrappedNative() common.Address {
	return r.wrappedNative
}

// SelectorHex formats a 4-byte selector as 0x-prefixed hex, the form the
// store keys methods by.
func SelectorHex(selector [4]byte) string {
	return "0x" + common.Bytes2Hex(selector[:])
}
