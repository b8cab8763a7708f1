package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docmakerhq/docmaker/internal/gdrive"
	"github.com/docmakerhq/docmaker/internal/handlers"
	"github.com/docmakerhq/docmaker/internal/render"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DocMaker API server",
	Long: `Starts the HTTP API. With DBOS_SYSTEM_DATABASE_URL set, pipeline
jobs are enqueued to the durable runtime; without it they run in-process,
which suits development but does not survive restarts.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	renderer, err := render.NewRenderer(logger)
	if err != nil {
		return err
	}

	pdf := render.NewPDFRenderer(render.PDFConfig{
		BrowserURL: cfg.Render.BrowserURL,
		Timeout:    cfg.Render.Timeout,
	}, logger)
	defer pdf.Close()

	opts := handlers.Options{
		Store:    a.store,
		Uploader: a.uploader,
		Dedupe:   a.dedupe,
		Renderer: renderer,
		PDF:      pdf,
		Derived:  a.writer,
		Library:  a.library,
		APIKey:   cfg.HTTP.APIKey,
	}

	if cfg.Drive.CredentialsFile != "" {
		drive, err := gdrive.NewClient(ctx, cfg.Drive.CredentialsFile, logger)
		if err != nil {
			return err
		}
		opts.Drive = drive
	}

	if a.runtime != nil {
		// Workflows must be registered before Launch.
		if err := a.runtime.Launch(); err != nil {
			return err
		}
		defer a.runtime.Shutdown(10 * time.Second)
		opts.Trigger = a.runner.RunAsync
		opts.Runs = a.runtime
	} else {
		logger.Warn("DBOS_SYSTEM_DATABASE_URL not set, pipeline jobs run in-process")
		opts.Trigger = a.runner.RunDetached
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handlers.NewServer(opts, logger).Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", zap.String("addr", cfg.HTTP.Addr))
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
