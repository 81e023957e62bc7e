// Command seed loads a catalog fixture into MySQL for local runs and demos.
package main

import (
	"context"
	"database/sql"
	"flag"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"openstays_catalog/internal/adapters/observability"
	"openstays_catalog/internal/shared"
	"openstays_catalog/internal/storage/fixture"
	mysqlrepo "openstays_catalog/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	path := flag.String("fixture", cfg.CatalogFixture, "fixture file to load")
	flag.Parse()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	f, err := fixture.Read(*path)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("read fixture failed")
	}
	log.Info().
		Str("path", *path).
		Int("properties", len(f.Properties)).
		Int("workers", cfg.SeedWorkers).
		Msg("seed starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	if err := mysqlrepo.New(db).Seed(ctx, f, cfg.SeedWorkers); err != nil {
		log.Fatal().Err(err).Msg("seed finished with errors")
	}
	log.Info().Msg("seed completed")
}
