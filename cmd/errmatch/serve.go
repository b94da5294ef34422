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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/app"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
	"github.com/kailas-cloud/errmatch/internal/version"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		port    int
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the errmatch HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				c.cfg.HTTP.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runServe(ctx, migrate)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override http.port")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create the schema before serving")
	return cmd
}

func (c *cli) runServe(ctx context.Context, migrate bool) error {
	cfg := c.cfg
	logger := c.logger

	logger.Info("Starting errmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.env),
		zap.String("driver", cfg.Database.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("classification_provider", cfg.Classification.Provider),
	)

	a, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := a.Migrate(ctx); err != nil && !errors.Is(err, domain.ErrDatabaseNotConfigured) {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      newHandler(a, c.loadCatalog, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// newHandler exposes the application over the chi router. loadCatalog serves
// reseed requests that carry no entries.
func newHandler(
	a *app.App,
	loadCatalog func(file string) ([]knownerror.Entry, error),
	apiKeys []string,
	logger *zap.Logger,
) http.Handler {
	srv := chitransport.NewServer(chitransport.Deps{
		Matcher:    a.Matching,
		Classifier: a.Classification,
		Triage:     a.Triage,
		Reseeder:   a.Ingestion,
		Health:     a.Health,
		Catalog:    func() ([]knownerror.Entry, error) { return loadCatalog("") },
	}, logger)
	return chitransport.NewRouter(srv, apiKeys, logger)
}
