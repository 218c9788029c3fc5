package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/api"
	"github.com/kestrel-aero/charterdesk/internal/config"
	"github.com/kestrel-aero/charterdesk/internal/errmon"
	"github.com/kestrel-aero/charterdesk/internal/intent"
	"github.com/kestrel-aero/charterdesk/internal/notify"
	"github.com/kestrel-aero/charterdesk/internal/orchestrator"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
	pgstore "github.com/kestrel-aero/charterdesk/internal/store"
	"github.com/kestrel-aero/charterdesk/internal/workers"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting charterdesk...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/charterdesk.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Conversation state store. The dialogue flow cannot run without it.
	store, err := pgstore.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("schema setup failed", zap.Error(err))
	}

	// Ops notifiers. Missing tokens just mean fewer alert channels.
	var channels notify.Multi
	if cfg.Notifiers.Slack.Enabled {
		sn, snErr := notify.NewSlackNotifier(cfg.Notifiers.Slack.BotToken, cfg.Notifiers.Slack.Channel, logger)
		if snErr != nil {
			logger.Warn("slack notifier disabled", zap.Error(snErr))
		} else {
			channels = append(channels, sn)
		}
	}
	if cfg.Notifiers.Discord.Enabled {
		dn, dnErr := notify.NewDiscordNotifier(cfg.Notifiers.Discord.BotToken, cfg.Notifiers.Discord.Channel, logger)
		if dnErr != nil {
			logger.Warn("discord notifier disabled", zap.Error(dnErr))
		} else {
			channels = append(channels, dn)
		}
	}
	var notifier notify.Notifier = notify.Nop{}
	if len(channels) > 0 {
		notifier = channels
	}

	monitor := errmon.NewMonitor(errmon.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay(),
		MaxDelay:   cfg.Retry.MaxDelay(),
	}, nil, logger)

	classifier := intent.NewClassifier(intent.Config{
		Endpoint: cfg.LLM.Endpoint,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	}, logger)

	flow := rfp.NewFlow(store, logger)

	// Task queue. Without Redis the service still converses; completed
	// requests are returned to the caller but not dispatched.
	var queue orchestrator.Queue
	rq, qErr := orchestrator.NewRedisQueue(cfg.Database.Redis.URL, logger)
	if qErr != nil {
		logger.Warn("Redis unavailable, running without task pipeline", zap.Error(qErr))
	} else {
		queue = rq
	}

	orch := orchestrator.New(flow, store, classifier, queue, logger)

	registry := agent.NewRegistry(logger)
	registry.Register(workers.NewClientLookup(nil, logger))
	registry.Register(workers.NewFlightSearch(nil, logger))
	registry.Register(workers.NewProposal(logger))
	registry.Register(workers.NewCommunication(nil, notifier, logger))
	registry.Register(errmon.NewWorker(monitor, notifier, logger))
	if err := registry.InitializeAll(context.Background()); err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}

	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	var pipeline *orchestrator.Pipeline
	if queue != nil {
		pipeline = orchestrator.NewPipeline(queue, registry, monitor, notifier, logger)
		pipeline.Start(pipeCtx)
		logger.Info("Task pipeline started", zap.Strings("workers", registry.Types()))
	}

	// TTL sweep for abandoned conversations.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-pipeCtx.Done():
				return
			case <-ticker.C:
				if _, err := store.Cleanup(context.Background(), cfg.Retention.StateDays); err != nil {
					logger.Warn("state cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	handler := api.NewHandler(orch, store, registry, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("charterdesk listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down charterdesk...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	pipeCancel()
	if pipeline != nil {
		pipeline.Wait()
	}
	if queue != nil {
		queue.Close()
	}
	store.Close()
}
