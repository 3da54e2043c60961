package server

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/lib/daylock"
	"gitlab.com/kuberbook/settlement_api/queries"
	"gitlab.com/kuberbook/settlement_api/service"
	"gitlab.com/kuberbook/settlement_api/service/settlement"
)

// App wires the storage, the engine and the scheduler shared by the server and the cli commands
type App struct {
	Config    config.Config
	Repo      queries.Store
	Service   *service.Service
	Scheduler *settlement.Scheduler
	closers   []func()
}

// Bootstrap connects to the database cluster and builds the engine on top of it
func Bootstrap(cfg config.Config) (*App, error) {
	repo, err := queries.InitRepo(cfg.DatabaseCluster)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(cfg, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}
	app.closers = append(app.closers, repo.Close)
	return app, nil
}

// NewApp builds the engine on top of an already opened store
func NewApp(cfg config.Config, repo queries.Store) (*App, error) {
	srv, err := service.Init(cfg, repo)
	if err != nil {
		return nil, err
	}
	opts, err := settlement.OptionsFromConfig(cfg.Settlement)
	if err != nil {
		return nil, errors.Wrap(err, "invalid settlement configuration")
	}
	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:    cfg,
		Repo:      repo,
		Service:   srv,
		Scheduler: settlement.New(settlement.SystemClock{}, repo, repo, srv, locker, opts),
	}
	if closeLocker != nil {
		app.closers = append(app.closers, closeLocker)
	}
	return app, nil
}

// newLocker selects the day lock backend, redis is used when configured or explicitly enabled
func newLocker(cfg config.Config) (daylock.Locker, func(), error) {
	if !cfg.SharedDayLock() {
		log.Debug().Str("section", "server").Str("lock_backend", "memory").Msg("Using in-process day lock")
		return daylock.NewMemoryLocker(), nil, nil
	}
	locker, err := daylock.NewRedisLocker(cfg.Redis.Network, cfg.Redis.Address, cfg.Redis.PoolSize, cfg.Settlement.LockTTL)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("section", "server").Str("lock_backend", "redis").Str("address", cfg.Redis.Address).Msg("Using redis day lock")
	return locker, closeQuietly(locker), nil
}

func closeQuietly(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Str("section", "server").Msg("Unable to close resource")
		}
	}
}

// Close releases the resources in reverse order of creation
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}
