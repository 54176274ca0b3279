package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/builder"
	"github.com/codeweld/mergebot/internal/config"
	"github.com/codeweld/mergebot/internal/cooldown"
	"github.com/codeweld/mergebot/internal/delivery"
	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/monitoring"
	"github.com/codeweld/mergebot/internal/server"
	"github.com/codeweld/mergebot/internal/session"
	"github.com/codeweld/mergebot/internal/stream"
	"github.com/codeweld/mergebot/internal/transport/telegram"
	"github.com/codeweld/mergebot/internal/workflow"
)

func main() {
	token := flag.String("token", "", "Bot API token (overrides BOT_TOKEN)")
	opsPort := flag.String("ops-port", "", "Ops server port (overrides OPS_PORT)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *token != "" {
		cfg.Bot.Token = *token
	}
	if *opsPort != "" {
		cfg.Ops.Port = *opsPort
	}
	if cfg.Bot.Token == "" {
		log.Fatal("bot token is required: set BOT_TOKEN or pass -token")
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWith(registry)
	hub := stream.NewHub()
	store := session.NewStore()

	client := telegram.NewClient(cfg.Bot.APIBase, cfg.Bot.Token, logger)

	wf := workflow.New(workflow.Deps{
		Config:  cfg,
		Store:   store,
		Gate:    cooldown.New(cfg.Cooldown.Inbound, cfg.Cooldown.Outbound),
		Builder: builder.New(cfg.Builder.Python, cfg.AllowedIconExtensions(), logger, hub),
		Planner: delivery.NewPlanner(cfg.Limits.UploadCeiling),
		Sender:  client,
		Fetcher: client,
		Logger:  logger,
		Metrics: metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ops *server.Server
	if cfg.Ops.Enabled {
		ops = server.New(server.Config{
			Port: cfg.Ops.Port,
			RateLimit: server.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
			},
		}, store, hub, metrics, registry, logger)
		go func() {
			if err := ops.Start(); err != nil {
				logger.Error("ops server failed", zap.Error(err))
				stop()
			}
		}()
	}

	username, err := client.GetMe(ctx)
	if err != nil {
		logger.Fatal("bot token check failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("username", username))

	poller := telegram.NewPoller(client, wf, cfg.Bot.PollTimeout, logger)
	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("poller stopped", zap.Error(err))
	}

	logger.Info("shutting down")
	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
}
