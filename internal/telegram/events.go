package telegram

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/him9495-payu/kaira/internal/flow"
)

// ChannelName identifies this transport on decoded events.
const ChannelName = "telegram"

// EventFromUpdate converts a polled update into a channel-agnostic event.
// Callback taps carry their data as the reply id; plain messages carry text
// and media flags. Update kinds the conversation cannot use report false.
func EventFromUpdate(update *models.Update) (flow.Event, bool) {
	if update == nil {
		return flow.Event{}, false
	}

	if q := update.CallbackQuery; q != nil {
		return flow.Event{
			Channel:     ChannelName,
			From:        strconv.FormatInt(q.From.ID, 10),
			MessageID:   q.ID,
			ProfileName: displayName(q.From.FirstName, q.From.LastName),
			ReplyID:     q.Data,
		}, true
	}

	if m := update.Message; m != nil && m.From != nil {
		return flow.Event{
			Channel:     ChannelName,
			From:        strconv.FormatInt(m.Chat.ID, 10),
			MessageID:   strconv.Itoa(m.ID),
			ProfileName: displayName(m.From.FirstName, m.From.LastName),
			Text:        messageText(m),
			HasImage:    len(m.Photo) > 0,
			HasDocument: m.Document != nil,
		}, true
	}

	return flow.Event{}, false
}

// messageText prefers the message body and falls back to the media caption
// so captioned attachments still reach keyword matching.
func messageText(m *models.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

func displayName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
