package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/api"
	"github.com/sebastiankruger/fruitsort-simulator/internal/cell"
	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/health"
	"github.com/sebastiankruger/fruitsort-simulator/internal/metrics"
)

// runCell runs the simulated sorting cell until SIGINT or SIGTERM
func runCell(cfg *config.Config) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
		}
	}()

	log.Info().
		Str("name", cfg.SimulatorName).
		Str("stage_file", cfg.StageFile).
		Int("opcua_port", cfg.OPCUAPort).
		Dur("timestep", cfg.Timestep).
		Float64("conveyor_speed", cfg.ConveyorSpeed).
		Msg("Configuration loaded")

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := cell.NewRunner(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sorting cell")
	}

	if err := runner.SetupOPCUA(cfg.OPCUAPort, cfg.SimulatorName); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup OPC UA server")
	}

	if err := runner.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sorting cell")
	}

	healthHandler := health.NewHandler()
	healthHandler.AddCheck("stage_table", func() bool { return runner.Loader().Table() != nil })
	healthHandler.AddCheck("opcua_server", runner.OPCUAServer().Running)

	// Start HTTP server (health, API, metrics)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/health/live", healthHandler.HandleLive)
	mux.HandleFunc("/health/ready", healthHandler.HandleReady)
	mux.Handle("/metrics", metrics.HTTPHandler(runner.Registry()))

	apiHandler := api.NewHandler(cfg.SimulatorName, runner.Store(), runner.Loader(), runner.RuntimeConfig())
	apiHandler.Register(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HealthPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HealthPort).Msg("Starting HTTP server (health + API + metrics)")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	runner.Run(ctx)

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Sorting cell shutdown error")
	}

	log.Info().Msg("Simulator stopped")
}
