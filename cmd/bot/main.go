// Package main contains the entrypoint for the kaira loan assistant service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/him9495-payu/kaira/internal/bot"
	"github.com/him9495-payu/kaira/internal/bot/tasks"
	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/database"
	"github.com/him9495-payu/kaira/internal/decision"
	"github.com/him9495-payu/kaira/internal/flow"
	"github.com/him9495-payu/kaira/internal/gemini"
	"github.com/him9495-payu/kaira/internal/logger"
	"github.com/him9495-payu/kaira/internal/notify"
	"github.com/him9495-payu/kaira/internal/server"
	"github.com/him9495-payu/kaira/internal/telegram"
	"github.com/him9495-payu/kaira/internal/whatsapp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes every component (config, logger, stores, channels, engine,
// dispatcher, server, scheduler), runs the orchestrator until shutdown, and
// returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	profiles := database.ProfileStore(store)
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
			return 1
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing Redis client", "error", err)
			}
		}()
		profiles = database.NewRedisProfileStore(rdb, log)
		log.Info("Serving profiles from Redis", "addr", cfg.Redis.Addr)
	}

	evaluator := decision.NewEvaluator(cfg.Decision, log)

	var responder flow.Responder
	if cfg.Gemini.APIKey != "" {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
		responder = gemClient
	} else {
		log.Warn("Gemini API key not set, support answers fall back to the knowledge base")
	}

	var notifier bot.EscalationNotifier
	if cfg.Notify.TopicARN != "" {
		n, err := notify.NewNotifier(ctx, cfg.Notify, log)
		if err != nil {
			log.Error("Failed to initialize SNS notifier", "error", err)
			return 1
		}
		notifier = n
	}

	waClient := whatsapp.NewClient(cfg.WhatsApp, log)

	engine := flow.NewEngine(flow.Deps{
		Logger:      log,
		Evaluator:   evaluator,
		Responder:   responder,
		Loans:       bot.NewLoanSummaryReader(store),
		DocumentURL: cfg.WhatsApp.AgreementDocumentURL,
	})

	// The dispatcher shares this map; the Telegram channel is added below
	// once its bot exists.
	messengers := bot.Messengers{whatsapp.ChannelName: waClient}

	dispatcher := bot.NewDispatcher(bot.DispatcherDeps{
		Logger:     log,
		Engine:     engine,
		Profiles:   profiles,
		Loans:      store,
		Audits:     store,
		Messengers: messengers,
		Notifier:   notifier,
		Dispatch:   cfg.Dispatch,
	})

	var tg *tgbot.Bot
	if cfg.Telegram.Enabled {
		handler := telegram.NewUpdateHandler(dispatcher, log)
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, tgbot.WithDefaultHandler(handler))
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}
		messengers[telegram.ChannelName] = telegram.NewMessenger(tg, log)
	}

	ready := server.Readiness{
		MessengerEnabled: waClient.Enabled(),
		ResponderEnabled: responder != nil,
		DecisionEnabled:  true,
	}
	webhook := server.NewWebhookHandler(dispatcher, store, ready, cfg.WhatsApp.VerifyToken, log)
	srv := server.New(cfg.Server, server.RouterConfig{Webhook: webhook, Logger: log}, log)

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Profiles:  profiles,
		Messenger: waClient,
		Flow:      cfg.Flow,
	})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, srv, tg, sched)

	log.Info("Starting kaira...")
	runErr := app.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
