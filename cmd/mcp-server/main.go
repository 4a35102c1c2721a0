package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stroke-code-server/internal/config"
	"github.com/stroke-code-server/internal/mcp"
	"github.com/stroke-code-server/internal/service"
)

func main() {
	// Load configuration
	var opts []config.Option
	if path := os.Getenv("STROKE_CODE_CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	configManager, err := config.NewManager(opts...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	// stdout carries the protocol; NewLogger writes to stderr.
	logger := config.NewLogger(cfg.Logging)

	server, err := mcp.NewServer(cfg.MCP, service.NewEligibilityEngine(logger), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("Stroke code MCP server stopped")
}
