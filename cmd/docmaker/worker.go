package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/metrics"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a dedicated pipeline worker",
	Long: `Runs pipeline jobs from the DBOS queue without serving the API.
Scale workers horizontally; DBOS partitions the queue between them.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBOS.DatabaseURL == "" {
		return fmt.Errorf("DBOS_SYSTEM_DATABASE_URL is required for worker mode")
	}

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.runtime.Launch(); err != nil {
		return err
	}
	defer a.runtime.Shutdown(10 * time.Second)

	logger.Info("worker running",
		zap.String("queue", a.runtime.QueueName()),
		zap.Int("concurrency", a.runtime.Concurrency()))

	// Health and metrics only; the API lives in serve mode.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
