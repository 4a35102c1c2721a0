package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/api"
	"github.com/stroke-code-server/internal/archive"
	"github.com/stroke-code-server/internal/config"
	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/mcp"
	"github.com/stroke-code-server/internal/notification"
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
	logger := config.NewLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := archive.Open(cfg.Archive, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open case archive")
	}
	defer store.Close()

	engine := service.NewEligibilityEngine(logger)
	recorder := service.NewCaseRecorder(engine, logger, service.WithCaseStore(store))
	if _, err := recorder.Load(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to load case history")
	}

	notifier, err := notification.New(cfg.Notification, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create notifier")
	}
	if redis, ok := notifier.(*notification.RedisNotifier); ok {
		defer redis.Close()
		if err := redis.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Redis notification channel unreachable")
		}
	}
	dispatcher := notification.NewDispatcher(notifier, cfg.Notification.Recipients, domain.SystemClock{}, logger)
	if missing := cfg.Notification.Recipients.EmptyRoles(); len(missing) > 0 {
		logger.WithField("missing_roles", missing).Warn("Notification recipients incomplete; set them via /api/v1/notifications/recipients")
	}

	timer := service.NewProtocolTimer(domain.SystemClock{}, logger)
	session := service.NewSession(engine, timer, recorder, dispatcher, logger)

	go timer.WatchMilestones(ctx, cfg.Timer.TickInterval, func(m domain.Milestone) {
		logger.WithFields(logrus.Fields{
			"milestone":     m.Name,
			"limit_seconds": m.LimitSeconds,
		}).Warn("Protocol milestone missed")
	})

	var serverOpts []api.ServerOption
	if cfg.MCP.HTTPEnabled {
		tools, err := mcp.NewServer(cfg.MCP, engine, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MCP server")
		}
		serverOpts = append(serverOpts, api.WithMCPHandler(tools.HTTPHandler()))
	}

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"archive":     cfg.Archive.Driver,
		"cases":       recorder.Len(),
	}).Info("Starting stroke code server")

	server := api.NewServer(configManager, session, logger, serverOpts...)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
