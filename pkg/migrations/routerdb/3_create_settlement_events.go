package routerdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/rango-exchange/router-middleware/pkg/pgutil/migrations"
	"github.com/rango-exchange/router-middleware/pkg/store/dao"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating settlement_events table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.SettlementEventDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.SettlementEventDao{}, "request_id", "event_type")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping settlement_events table...")
		return mghelper.DropTables(ctx, db, &dao.SettlementEventDao{})
	})
}
