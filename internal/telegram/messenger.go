package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/him9495-payu/kaira/internal/flow"
)

// Messenger delivers outbound messages on Telegram. Reply buttons become a
// single-column inline keyboard and documents are sent by URL, mirroring
// what the primary channel offers.
type Messenger struct {
	bot *bot.Bot
	log *slog.Logger
}

// NewMessenger wraps a bot instance as a flow messenger.
func NewMessenger(b *bot.Bot, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Messenger{bot: b, log: logger.With("component", "telegram_messenger")}
}

// SendText sends a plain text message.
func (m *Messenger) SendText(ctx context.Context, to, body string) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}

	_, err = m.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: body})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// SendChoice sends a message with one inline keyboard button per row.
func (m *Messenger) SendChoice(ctx context.Context, to, body string, buttons []flow.Button) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	if len(buttons) == 0 {
		return fmt.Errorf("at least one button is required")
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{{Text: b.Label, CallbackData: b.ID}})
	}

	_, err = m.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        body,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram choice message: %w", err)
	}
	return nil
}

// SendDocument sends a document by public link.
func (m *Messenger) SendDocument(ctx context.Context, to, link, filename string) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	if link == "" {
		return fmt.Errorf("document link is required")
	}

	_, err = m.bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileString{Data: link},
		Caption:  filename,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	return nil
}

func parseChatID(to string) (int64, error) {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	return chatID, nil
}
