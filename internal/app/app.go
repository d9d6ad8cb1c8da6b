package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres/eventlog"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres/playerstate"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres/score"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/provider/inaturalist"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/provider/sheet"
	"github.com/heartmarshall/wildguess-backend/internal/auth"
	"github.com/heartmarshall/wildguess-backend/internal/catalog"
	"github.com/heartmarshall/wildguess-backend/internal/config"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/acquisition"
	"github.com/heartmarshall/wildguess-backend/internal/service/game"
	"github.com/heartmarshall/wildguess-backend/internal/service/player"
	"github.com/heartmarshall/wildguess-backend/internal/service/species"
	"github.com/heartmarshall/wildguess-backend/internal/transport/middleware"
	"github.com/heartmarshall/wildguess-backend/internal/transport/rest"
	"github.com/heartmarshall/wildguess-backend/migrations"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires services and serves HTTP until ctx is cancelled, then
// shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.Bool("auth", cfg.Auth.Enabled()),
	)

	// 1. Infrastructure.
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			return err
		}
	}
	txm := postgres.NewTxManager(pool)

	// 2. Repositories.
	stateRepo := playerstate.New(pool)
	scoreRepo := score.New(pool)
	eventRepo := eventlog.New(pool)

	// 3. Catalog and upstream providers.
	speciesSvc := species.NewService(logger, catalogSource(logger, cfg.Catalog), toRegions(cfg.Catalog.Regions), cfg.Catalog.CacheTTL)

	backup, err := catalog.Backup()
	if err != nil {
		return fmt.Errorf("load backup dataset: %w", err)
	}
	observations := inaturalist.NewProvider(logger, cfg.Observation)

	// 4. Services.
	acq, err := acquisition.NewService(logger, observations, speciesSvc, backup, acquisition.Config{
		MaxAttempts:      cfg.Acquisition.MaxAttempts,
		BatchSize:        cfg.Acquisition.BatchSize,
		SummaryCacheSize: cfg.Observation.SummaryCacheSize,
		SummaryCacheTTL:  cfg.Observation.SummaryCacheTTL,
	})
	if err != nil {
		return err
	}
	playerSvc := player.NewService(logger, stateRepo, stateRepo, scoreRepo)
	recorder := game.NewRecorder(logger, txm, scoreRepo, eventRepo, playerSvc)
	games := game.NewManager(logger, acq, speciesSvc, playerSvc, recorder, game.Config{
		TimerEnabled:    cfg.Round.TimerEnabled,
		ClueSeconds:     cfg.Round.ClueSeconds,
		FeedbackDelay:   cfg.Round.FeedbackDelay,
		IdleTTL:         cfg.Session.IdleTTL,
		JanitorInterval: cfg.Session.JanitorInterval,
		MaxSessions:     cfg.Session.MaxSessions,
	})

	// 5. Transport.
	authMW := middleware.Auth(nil)
	if cfg.Auth.Enabled() {
		authMW = middleware.Auth(auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.CleanupInterval)
	defer limiter.Stop()

	mw := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		limiter.Limit(cfg.RateLimit.RequestsPerMinute),
		authMW,
	)

	defaultRegion, err := speciesSvc.Region("")
	if err != nil {
		return err
	}
	handler := rest.NewRouter(rest.Handlers{
		Health: rest.NewHealthHandler(BuildVersion(),
			rest.Check{Name: "database", Ping: pool.Ping},
			rest.Check{Name: "catalog", Ping: func(ctx context.Context) error {
				_, err := speciesSvc.Species(ctx, defaultRegion)
				return err
			}},
		),
		Catalog: rest.NewCatalogHandler(speciesSvc, logger),
		Session: rest.NewSessionHandler(games, eventRepo, logger),
		Player:  rest.NewPlayerHandler(playerSvc, games, logger),
	}, mw)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 6. Serve until ctx ends.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return games.Run(gctx)
	})
	g.Go(func() error {
		reloadCatalogOnHangup(gctx, logger, speciesSvc)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func toRegions(in []config.RegionConfig) []domain.Region {
	out := make([]domain.Region, len(in))
	for i, r := range in {
		out[i] = domain.Region{Name: r.Name, PlaceID: r.PlaceID}
	}
	return out
}

// reloadCatalogOnHangup purges the species cache on every SIGHUP so the
// next request refetches the catalog export.
func reloadCatalogOnHangup(ctx context.Context, logger *slog.Logger, svc *species.Service) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			svc.Invalidate()
			logger.Info("catalog cache purged", slog.String("signal", "SIGHUP"))
		}
	}
}

type catalogFetcher interface {
	Fetch(ctx context.Context) (*catalog.ParseResult, error)
}

// catalogSource fetches the configured CSV export, or serves the bundled
// catalog when no URL is set.
func catalogSource(logger *slog.Logger, cfg config.CatalogConfig) catalogFetcher {
	if cfg.SourceURL == "" {
		return sheet.Bundled{}
	}
	return sheet.NewProvider(logger, cfg.SourceURL, cfg.Timeout)
}
