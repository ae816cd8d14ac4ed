package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/him9495-payu/kaira/internal/server"
)

// Bot runs the service's long-lived components and shuts them down together:
// the webhook HTTP server, the optional Telegram long-poll listener, and the
// task scheduler.
type Bot struct {
	logger    *slog.Logger
	server    *server.Server
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator. tgBot may be nil when the Telegram
// channel is disabled.
func NewBot(logger *slog.Logger, srv *server.Server, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		server:    srv,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until the context is cancelled or a
// component fails. Components stop together: the first failure cancels the
// group and the rest drain gracefully.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting HTTP server...")
		if err := b.server.Start(); err != nil {
			b.logger.Error("HTTP server failed", "error", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping HTTP server...")

		if err := b.server.Shutdown(); err != nil {
			b.logger.Error("Error stopping HTTP server", "error", err)
		}
		return nil
	})

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram listener...")

			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram listener stopped unexpectedly without context cancellation.")

				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	b.logger.Info("Orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
