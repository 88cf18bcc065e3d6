package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/cli"
	"github.com/metabridge/graph-connector/internal/config"
	"github.com/metabridge/graph-connector/internal/database"
	"github.com/metabridge/graph-connector/internal/repository"
	"github.com/metabridge/graph-connector/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := cli.NewRootCmd(open).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// open wires the services against the configured database. OAuth state is
// never issued from the CLI, so the Postgres store is always used.
func open(ctx context.Context) (*cli.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	accountRepo := repository.NewAccountRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	states := service.NewStateService(repository.NewOAuthStateRepository(db.DB), cfg.OAuthStateTTL())
	igClients := service.NewInstagramClients(cfg.Instagram, nil)

	return &cli.Services{
		Accounts: service.NewAccountService(accountRepo, profileRepo),
		Tokens:   service.NewInstagramService(cfg.Instagram, igClients, states, db, accountRepo, profileRepo),
		Profiles: service.NewMessengerProfileService(igClients.Graph),
		Migrator: migrator{db: db},
		Close:    func() { db.Close() },
	}, nil
}

type migrator struct {
	db *database.DB
}

func (m migrator) Up() error {
	return database.Migrate(m.db)
}

func (m migrator) Down(steps int) error {
	return database.MigrateDown(m.db, steps)
}

func (m migrator) Version() (uint, bool, error) {
	return database.MigrationVersion(m.db)
}
