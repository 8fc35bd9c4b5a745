package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/preventive-care-server/internal/app"
	"github.com/preventive-care-server/internal/config"
	"github.com/preventive-care-server/internal/mcp"
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

	// stdout carries the protocol, so logs always go to stderr
	cfg := configManager.GetConfig()
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize preventive care MCP server")
	}
	defer application.Close()

	mcpServer, err := mcp.NewServer(cfg.MCP, application.Service, application.Bridge, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := mcpServer.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Preventive care MCP server stopped")
}
