// Package serve implements the long-running server: datastore, event
// bus, audit queue, and JSON API wired together.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/api"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/audit"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/events"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/export"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/items"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/llm"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/notification"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit server",
		Long:  "Start the JSON API, the audit job queue, and the notification dispatcher.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "API listen port")
	cmd.Flags().StringVar(&settings.LLM.Model, "model", viper.GetString("llm.model"), "Model used for audits")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		cobra.CheckErr(err)
	}
}

func runServer(settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.ForService("server")

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	dispatcher, err := notification.NewDispatcher(settings)
	if err != nil {
		return fmt.Errorf("initializing notifications: %w", err)
	}

	client := llm.New(settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditSvc := audit.New(settings, store, client, dispatcher, metrics)
	auditSvc.Start(ctx)
	defer func() {
		if err := auditSvc.Stop(shutdownTimeout); err != nil {
			logger.Error("audit queue did not drain cleanly", "error", err)
		}
	}()

	bus := events.NewEventBus(events.DefaultConfig())
	if err := bus.RegisterConsumer(auditSvc); err != nil {
		return fmt.Errorf("registering audit consumer: %w", err)
	}
	bus.Start(ctx)
	defer func() {
		if err := bus.Shutdown(shutdownTimeout); err != nil {
			logger.Error("event bus did not drain cleanly", "error", err)
		}
	}()

	itemsSvc := items.New(settings, store, bus, auditSvc)
	exportSvc := export.New(store)
	controller := api.New(settings, store, itemsSvc, exportSvc, registry)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "port", settings.WebServer.Port)
		errCh <- controller.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := controller.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
