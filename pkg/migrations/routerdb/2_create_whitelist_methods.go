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
		log.Println("creating whitelist_methods table...")
		return mghelper.CreateSchema(ctx, db, &dao.WhitelistMethodDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping whitelist_methods table...")
		return mghelper.DropTables(ctx, db, &dao.WhitelistMethodDao{})
	})
}
