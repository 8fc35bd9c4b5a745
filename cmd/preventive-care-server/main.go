package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/preventive-care-server/internal/api"
	"github.com/preventive-care-server/internal/app"
	"github.com/preventive-care-server/internal/config"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize preventive care server")
	}
	defer application.Close()

	logger.Infof("Starting preventive care server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	server := api.NewServer(configManager, application.APIDependencies())
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
