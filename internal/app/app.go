package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"attack-tracker/internal/api"
	"attack-tracker/internal/config"
	"attack-tracker/internal/fetcher"
	"attack-tracker/internal/query"
	"attack-tracker/internal/scheduler"
	"attack-tracker/internal/service"
	"attack-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newAdapters() []fetcher.Adapter {
	src := a.Config.Sources
	return []fetcher.Adapter{
		fetcher.NewRekt(fetcher.RektOptions{
			BaseURL:   src.RektBaseURL,
			Timeout:   src.RequestTimeout,
			UserAgent: src.UserAgent,
		}, a.Logger),
		fetcher.NewDeFiYield(fetcher.DeFiYieldOptions{
			URL:       src.DeFiYieldURL,
			Timeout:   src.RequestTimeout,
			UserAgent: src.UserAgent,
		}, a.Logger),
		fetcher.NewSlowMist(fetcher.SlowMistOptions{
			URL:       src.SlowMistURL,
			Timeout:   src.RequestTimeout,
			UserAgent: src.UserAgent,
		}, a.Logger),
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newRefresher builds the refresh controller. A nil store puts the job
// into degraded mode: the pipeline runs, nothing persists.
func (a *App) newRefresher(adapters []fetcher.Adapter, store *storage.Store) *service.Refresher {
	var attackStore storage.AttackStore
	var logStore storage.RefreshLogStore
	if store != nil {
		attackStore = store
		logStore = store
	}
	return service.NewRefresher(adapters, attackStore, logStore, a.Config.Refresh.Interval, a.Logger)
}

func (a *App) newGateway(store *storage.Store) *query.Gateway {
	// A nil *Store still satisfies AttackReader; its reads report
	// ErrNotConfigured, which the gateway turns into empty results.
	return query.NewGateway(store, a.Logger)
}

// Run starts the REST API server and, when enabled, the periodic refresh
// scheduler. Blocks until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	refresher := a.newRefresher(a.newAdapters(), store)
	gateway := a.newGateway(store)
	server := api.NewServer(a.Config.Server, gateway, refresher, a.Logger)

	if a.Config.Refresh.Scheduled {
		sched := scheduler.New(scheduler.Options{
			Interval:     a.Config.Refresh.Interval,
			StartupDelay: a.Config.Refresh.StartupDelay,
		}, a.Logger)
		go func() {
			if err := sched.Run(ctx, func(ctx context.Context) error {
				_, runErr := refresher.Run(ctx)
				return runErr
			}); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("scheduler stopped with error")
			}
		}()
	}

	a.Logger.Info().Msg("starting api server")
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api server terminated with error")
		return err
	}

	a.Logger.Info().Msg("api server stopped")
	return nil
}

// ExportOptions hold parameters for exporting persisted attacks.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	CSVPath string
	PNGPath string
	MaxRows int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
