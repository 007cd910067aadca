package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tvuorinen/flickrarc/internal/archive"
	"github.com/tvuorinen/flickrarc/internal/config"
	"github.com/tvuorinen/flickrarc/internal/webui"
)

// serverShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
const serverShutdownTimeout = 10 * time.Second

var flagServeAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local browsing UI",
		Long:  "Runs the web interface over the local archive. Binds to loopback by default; syncs can be triggered from the page.",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (default from config)")

	return cmd
}

// newSyncRunner builds the sync closure behind the web trigger. It takes
// the same archive lock as the sync command, so a web-triggered run and a
// concurrent CLI sync cannot write the same archive.
func newSyncRunner(store *archive.Store, dataDir string, logger *slog.Logger) webui.SyncFunc {
	return func(ctx context.Context) (*archive.Report, error) {
		unlock, err := acquireLock(archiveLockPath(dataDir))
		if err != nil {
			return nil, err
		}
		defer unlock()

		client, err := newFlickrClient(logger)
		if err != nil {
			return nil, err
		}

		lookback := loadedCfg.Sync.LookbackDays
		orch := archive.NewOrchestrator(client, store, client.UserID(), lookback,
			config.ThumbnailsDir(dataDir), logger)

		return orch.Run(ctx)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	dataDir := loadedCfg.ResolveDataDir()
	if err := os.MkdirAll(config.ThumbnailsDir(dataDir), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := archive.NewStore(config.DatabasePath(dataDir), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runSync := newSyncRunner(store, dataDir, logger)

	addr := loadedCfg.Serve.Addr
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	server := webui.NewServer(store, runSync, config.ThumbnailsDir(dataDir), logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("web interface listening", "addr", addr)
		statusf("Serving archive on http://%s\n", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}

		logger.Info("web interface stopped")

		return nil
	})

	return g.Wait()
}
