package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/catalog"
	"github.com/RockaiDev/bariqe-dashboard/internal/config"
	"github.com/RockaiDev/bariqe-dashboard/internal/db"
	"github.com/RockaiDev/bariqe-dashboard/internal/export"
	"github.com/RockaiDev/bariqe-dashboard/internal/ingestion"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/profile"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/records"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
	"github.com/RockaiDev/bariqe-dashboard/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs once config is loaded.
type app struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "bariqe",
		Short:        "Bariqe dashboard backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			cmd.SetContext(logging.NewContextWithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", ".", "directory containing config.yaml")

	root.AddCommand(
		a.serveCommand(),
		a.migrateCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.seedCommand(),
	)
	return root
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	repo, closeStore, err := a.openStore(ctx, true)
	if err != nil {
		return err
	}
	defer closeStore()

	defaultOrg := uuid.Nil
	if raw := a.cfg.Server.DefaultOrganizationID; raw != "" {
		if defaultOrg, err = uuid.Parse(raw); err != nil {
			return fmt.Errorf("invalid default organization id: %w", err)
		}
	}

	registry := catalog.Default()
	recordService := a.recordService(repo)
	router := server.NewRouter(server.Options{
		AllowedOrigins:        a.cfg.Server.AllowedOrigins,
		MetricsEnabled:        a.cfg.Server.MetricsEnabled,
		DefaultOrganizationID: defaultOrg,
	}, server.Services{
		Registry:  registry,
		Records:   recordService,
		Ingestion: ingestion.NewService(recordService),
		Export:    export.NewService(recordService),
		Profile:   profile.NewService(recordService, registry, a.cfg.Cache.ProfileTTL),
	}, a.logger)

	srv := server.NewHTTPServer(server.HTTPConfig{
		Port:         a.cfg.Server.Port,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}, server.WithCORS(router, a.cfg.Server.AllowedOrigins))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("backend", a.cfg.Backend),
			zap.String("config", a.cfg.File),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server exited")
	return nil
}

func (a *app) recordService(repo repository.RecordRepository) *records.Service {
	return records.NewService(repo, records.WithPaginator(query.NewPaginator(
		query.WithDefaultPerPage(a.cfg.Query.DefaultPerPage),
		query.WithMaxPerPage(a.cfg.Query.MaxPerPage),
		query.WithStrictFilters(a.cfg.Query.StrictFilters),
	)))
}

// openStore connects the configured backend. migrate runs schema migrations or
// index creation before the store is returned.
func (a *app) openStore(ctx context.Context, migrate bool) (repository.RecordRepository, func(), error) {
	switch a.cfg.Backend {
	case config.BackendMemory:
		a.logger.Warn("using in-memory storage, data is lost on exit")
		return repository.NewMemoryRecordRepository(), func() {}, nil

	case config.BackendMongo:
		conn, err := db.NewMongoConnection(ctx, a.cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := conn.Close(closeCtx); err != nil {
				a.logger.Warn("failed to close mongo connection", zap.Error(err))
			}
		}
		if migrate {
			if err := conn.EnsureIndexes(ctx); err != nil {
				closeFn()
				return nil, nil, fmt.Errorf("failed to create mongo indexes: %w", err)
			}
		}
		return repository.NewMongoRecordRepository(conn.RecordsCollection()), closeFn, nil

	default:
		conn, err := db.NewConnection(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if migrate {
			if err := db.RunMigrations(ctx, conn.Pool); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return repository.NewRecordRepository(conn.Pool), conn.Close, nil
	}
}
