// Package routerdb holds all the migrations for the router database
package routerdb

import "github.com/uptrace/bun/migrate"

// Migrations is the registry the numbered migration files register into
var Migrations = migrate.NewMigrations()
