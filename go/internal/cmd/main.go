package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config := resolveConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, continuing without persistence")
		pool = nil
	}
	if pool != nil {
		defer pool.Close()
	}

	services, err := setupServices(ctx, config, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire services")
	}

	go services.Connections.Start(ctx)

	if services.Consumer != nil {
		go func() {
			if err := services.Consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("gateway event consumer failed")
			}
		}()
	}

	if err := services.Snapshotter.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start snapshot job")
	}

	server := setupServer(config, services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("match engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	if err := services.Snapshotter.Stop(); err != nil {
		log.Error().Err(err).Msg("snapshot job shutdown failed")
	}
	services.Orchestrator.Shutdown()
	services.Pollers.StopAll()
	if services.Consumer != nil {
		if err := services.Consumer.Stop(); err != nil {
			log.Error().Err(err).Msg("event consumer shutdown failed")
		}
	}
	if services.Relay != nil {
		services.Relay.Close()
	}
	cancel()

	log.Info().Msg("match engine shutdown complete")
}
