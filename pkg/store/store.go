// Package store provides the settler's PostgreSQL persistence: the whitelist
// registry tables and the settlement event history.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/rango-exchange/router-middleware/pkg/store/dao"
)

// Store provides database operations for the settler
type Store struct {
	db *bun.DB
}

// New wraps an existing bun connection
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection for advanced queries
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// IsContractWhitelisted checks if a contract address is whitelisted
func (s *Store) IsContractWhitelisted(ctx context.Context, address string) (bool, error) {
	return s.db.NewSelect().
		Model((*dao.WhitelistContractDao)(nil)).
		Where("address = ?", normalizeAddress(address)).
		Exists(ctx)
}

// IsMessagingContractWhitelisted checks if an address may receive dApp
// message callbacks
func (s *Store) IsMessagingContractWhitelisted(ctx context.Context, address string) (bool, error) {
	return s.db.NewSelect().
		Model((*dao.WhitelistContractDao)(nil)).
		Where("address = ?", normalizeAddress(address)).
		Where("messaging = TRUE").
		Exists(ctx)
}

// IsMethodWhitelisted checks if a selector is whitelisted on a contract
func (s *Store) IsMethodWhitelisted(ctx context.Context, address, selector string) (bool, error) {
	return s.db.NewSelect().
		Model((*dao.WhitelistMethodDao)(nil)).
		Where("address = ?", normalizeAddress(address)).
		Where("selector = ?", strings.ToLower(selector)).
		Exists(ctx)
}

// AddContract adds or updates a whitelisted contract
func (s *Store) AddContract(ctx context.Context, address string, messaging bool, note string) error {
	entry := &dao.WhitelistContractDao{
		Address:   normalizeAddress(address),
		Messaging: messaging,
		Note:      note,
	}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (address) DO UPDATE").
		Set("messaging = EXCLUDED.messaging").
		Set("note = EXCLUDED.note").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adding contract to whitelist: %w", err)
	}
	return nil
}

// RemoveContract removes a contract and all its whitelisted methods
func (s *Store) RemoveContract(ctx context.Context, address string) error {
	addr := normalizeAddress(address)
	if _, err := s.db.NewDelete().
		Model((*dao.WhitelistMethodDao)(nil)).
		Where("address = ?", addr).
		Exec(ctx); err != nil {
		return fmt.Errorf("removing contract methods: %w", err)
	}
	if _, err := s.db.NewDelete().
		Model((*dao.WhitelistContractDao)(nil)).
		Where("address = ?", addr).
		Exec(ctx); err != nil {
		return fmt.Errorf("removing contract from whitelist: %w", err)
	}
	return nil
}

// AddMethod whitelists a selector on a contract
func (s *Store) AddMethod(ctx context.Context, address, selector, note string) error {
	entry := &dao.WhitelistMethodDao{
		Address:  normalizeAddress(address),
		Selector: strings.ToLower(selector),
		Note:     note,
	}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (address, selector) DO UPDATE").
		Set("note = EXCLUDED.note").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adding method to whitelist: %w", err)
	}
	return nil
}

// RemoveMethod removes a whitelisted selector from a contract
func (s *Store) RemoveMethod(ctx context.Context, address, selector string) error {
	_, err := s.db.NewDelete().
		Model((*dao.WhitelistMethodDao)(nil)).
		Where("address = ?", normalizeAddress(address)).
		Where("selector = ?", strings.ToLower(selector)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("removing method from whitelist: %w", err)
	}
	return nil
}

// ListContracts returns all whitelisted contracts
func (s *Store) ListContracts(ctx context.Context) ([]*dao.WhitelistContractDao, error) {
	var entries []*dao.WhitelistContractDao
	err := s.db.NewSelect().
		Model(&entries).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing whitelisted contracts: %w", err)
	}
	return entries, nil
}

// ListMethods returns all whitelisted methods for a contract
func (s *Store) ListMethods(ctx context.Context, address string) ([]*dao.WhitelistMethodDao, error) {
	var entries []*dao.WhitelistMethodDao
	err := s.db.NewSelect().
		Model(&entries).
		Where("address = ?", normalizeAddress(address)).
		Order("selector ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing whitelisted methods: %w", err)
	}
	return entries, nil
}

// InsertEvent records one settlement event
func (s *Store) InsertEvent(ctx context.Context, ev *dao.SettlementEventDao) error {
	if _, err := s.db.NewInsert().Model(ev).Exec(ctx); err != nil {
		return fmt.Errorf("inserting settlement event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent settlement events, optionally filtered
// by request id
func (s *Store) ListEvents(ctx context.Context, requestID string, limit int) ([]*dao.SettlementEventDao, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.NewSelect().
		Model((*dao.SettlementEventDao)(nil)).
		Order("id DESC").
		Limit(limit)
	if requestID != "" {
		q = q.Where("request_id = ?", strings.ToLower(requestID))
	}
	var entries []*dao.SettlementEventDao
	if err := q.Scan(ctx, &entries); err != nil {
		return nil, fmt.Errorf("listing settlement events: %w", err)
	}
	return entries, nil
}
