// Package telegram adapts the Telegram channel to the conversation flow:
// bot setup, inbound update conversion, and outbound delivery through
// inline keyboards.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/him9495-payu/kaira/internal/flow"
)

// Dispatcher consumes decoded inbound events, one per user at a time.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev flow.Event) error
}

// NewTelegramBot creates a Telegram bot instance using the go-telegram/bot
// library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully")
	return b, nil
}

// NewUpdateHandler returns the default update handler: every supported
// update is converted to a flow event and handed to the dispatcher.
// Callback taps are acknowledged first so clients stop showing a pending
// indicator even when handling fails.
func NewUpdateHandler(dispatcher Dispatcher, logger *slog.Logger) bot.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "telegram_handler")

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ev, ok := EventFromUpdate(update)
		if !ok {
			log.DebugContext(ctx, "Ignoring unsupported update", "update_id", update.ID)
			return
		}

		if update.CallbackQuery != nil {
			_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
			})
			if err != nil {
				log.WarnContext(ctx, "Failed to acknowledge callback query", "error", err, "from", ev.From)
			}
		}

		if err := dispatcher.Dispatch(ctx, ev); err != nil {
			log.ErrorContext(ctx, "Failed to handle telegram event", "error", err, "from", ev.From)
		}
	}
}
