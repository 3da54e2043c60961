package commands

import (
	"github.com/rs/zerolog/log"

	cfg "gitlab.com/kuberbook/settlement_api/config"

	"github.com/golang-migrate/migrate/v4"

	// import support for file mime type
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsSource is where the sql files are read from
const MigrationsSource = "file://./db/migrations"

// Migrate the current database schema to the new version
func Migrate(config cfg.Config) {
	m, err := migrate.New(MigrationsSource, config.DatabaseCluster.Writer.URI())
	if err != nil {
		log.Fatal().Err(err).Str("section", "migrate").Msg("Unable to connect to database [WRITER]")
		return
	}
	defer m.Close()

	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		if errMapped, ok := err.(migrate.ErrDirty); ok {
			log.Fatal().Err(err).Str("section", "migrate").Int("version", errMapped.Version).Msg("Unable to execute migration")
		} else {
			log.Fatal().Err(err).Str("section", "migrate").Msg("Unable to execute unknown migration")
		}
		return
	}
	log.Info().Str("section", "migrate").Msg("Migrations executed successfully")
}
