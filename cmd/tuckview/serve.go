package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/go9sky/tuckview/internal/filehistory"
	"github.com/go9sky/tuckview/internal/httpapi"
	"github.com/go9sky/tuckview/tabledata/jsonbackend"
	"github.com/go9sky/tuckview/tabledata/postgresbackend"
	"github.com/go9sky/tuckview/tabledata/promadapters"
	"github.com/go9sky/tuckview/tabledata/queryengine"
	"github.com/go9sky/tuckview/tabledata/registry"
	"github.com/go9sky/tuckview/tabledata/sqlitebackend"
)

const serverShutdownTimeout = 10 * time.Second

type serveFlags struct {
	listen     string
	open       []string
	historyDir string
	debug      bool
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	serve.Flags().StringVar(&flags.listen, "listen", ":8333", "address the HTTP server listens on")
	serve.Flags().StringArrayVar(&flags.open, "open", nil, "source to open at startup, repeatable")
	serve.Flags().StringVar(&flags.historyDir, "history-dir", "", "directory for the recent-files store, defaults to ~/.tuckview")
	serve.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	return serve
}

func runServe(ctx context.Context, flags *serveFlags) error {
	level := slog.LevelInfo
	if flags.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if !flags.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := promadapters.NewCollector(prometheus.DefaultRegisterer)

	connections := registry.New(
		registry.WithLogger(logger),
		registry.WithOpener(jsonbackend.Opener()),
		registry.WithOpener(sqlitebackend.Opener()),
		registry.WithOpener(postgresbackend.Opener()),
		registry.WithEngineOptions(
			queryengine.WithLogger(logger),
			queryengine.WithMetrics(metrics),
		),
	)
	defer connections.CloseAll()

	history := filehistory.NewStore(flags.historyDir)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, source := range flags.open {
		handle, err := connections.Open(ctx, source)
		if err != nil {
			return fmt.Errorf("opening %s: %w", source, err)
		}

		history.Record(handle.Source)
		logger.Info("source opened at startup",
			"source", handle.Source,
			"id", handle.ID,
			"backend", handle.Capabilities().BackendName)
	}

	api, err := httpapi.NewServer(
		connections,
		httpapi.WithLogger(logger),
		httpapi.WithHistory(history),
		httpapi.WithRecognizer(jsonbackend.Recognize),
		httpapi.WithRecognizer(sqlitebackend.Recognize),
	)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	server := &http.Server{
		Addr:    flags.listen,
		Handler: api.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logger.Info("server listening", "addr", flags.listen)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}
