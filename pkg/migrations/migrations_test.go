package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/rango-exchange/router-middleware/pkg/migrations/routerdb"
	"github.com/rango-exchange/router-middleware/pkg/pgutil"
)

func TestRouterDBMigrations_Apply(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, routerdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}

	expectedTables := []string{
		"whitelist_contracts",
		"whitelist_methods",
		"settlement_events",
		"bun_migrations",
	}
	for _, table := range expectedTables {
		pgutil.AssertTableExists(t, db, table)
	}

	pgutil.AssertIndexExists(t, db, "idx_whitelist_contracts_messaging")
	pgutil.AssertIndexExists(t, db, "idx_settlement_events_request_id")
	pgutil.AssertIndexExists(t, db, "idx_settlement_events_event_type")
}

func TestRouterDBMigrations_Rollback(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, routerdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	// Roll everything back; each migration ran in its own group.
	for {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			t.Fatalf("Rollback() failed: %v", err)
		}
		if group.IsZero() {
			break
		}
	}

	pgutil.AssertTableNotExists(t, db, "whitelist_contracts")
	pgutil.AssertTableNotExists(t, db, "whitelist_methods")
	pgutil.AssertTableNotExists(t, db, "settlement_events")
}
