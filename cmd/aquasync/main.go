package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/timzifer/aquasync/config"
	"github.com/timzifer/aquasync/internal/logging"
	"github.com/timzifer/aquasync/notify"
	"github.com/timzifer/aquasync/remote"
	"github.com/timzifer/aquasync/service"
	"github.com/timzifer/aquasync/telemetry"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	healthcheck := flag.Bool("healthcheck", false, "Validate configuration and exit")
	liveViewListen := flag.String("live-view-listen", "", "Override the live view listen address")
	flag.Parse()

	if *healthcheck {
		if err := executeHealthCheck(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	client, err := remote.NewHTTPClientFactory()(cfg.Endpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create backend client")
	}

	engine, err := service.New(cfg, logger, client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}
	defer engine.Close()

	if cfg.Telemetry.Enabled {
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		} else {
			engine.SetTelemetry(collector)
		}
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create notifier")
	}
	engine.SetNotifier(notifier)

	if err := engine.EnableLiveView(*liveViewListen); err != nil {
		logger.Fatal().Err(err).Msg("failed to start live view")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := engine.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("engine stopped with error")
	}
}

func executeHealthCheck(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	return service.Validate(cfg)
}
