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
		log.Println("creating whitelist_contracts table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.WhitelistContractDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.WhitelistContractDao{}, "messaging")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping whitelist_contracts table...")
		return mghelper.DropTables(ctx, db, &dao.WhitelistContractDao{})
	})
}
