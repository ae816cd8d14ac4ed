package whatsapp

import "github.com/him9495-payu/kaira/internal/flow"

// ChannelName identifies this transport on decoded events.
const ChannelName = "whatsapp"

// WebhookPayload is the Cloud API webhook envelope. Meta batches messages
// from possibly several conversations into one delivery under
// entry/changes/value.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one WhatsApp business account entry in a webhook delivery.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change notification inside an entry.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the actual messages and sender contacts of a change.
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
}

// Contact is the sender identity Meta attaches alongside messages.
type Contact struct {
	WaID    string         `json:"wa_id"`
	Profile ContactProfile `json:"profile"`
}

// ContactProfile holds the sender's WhatsApp display name.
type ContactProfile struct {
	Name string `json:"name"`
}

// InboundMessage is one received message. Only the member matching Type is
// populated.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *InboundText        `json:"text,omitempty"`
	Button      *InboundButton      `json:"button,omitempty"`
	Interactive *InboundInteractive `json:"interactive,omitempty"`
	Image       *InboundMedia       `json:"image,omitempty"`
	Document    *InboundMedia       `json:"document,omitempty"`
}

// InboundText is the body of a plain text message.
type InboundText struct {
	Body string `json:"body"`
}

// InboundButton is a template quick-reply tap.
type InboundButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// InboundInteractive is a reply to an interactive message.
type InboundInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *InboundReply `json:"button_reply,omitempty"`
	ListReply   *InboundReply `json:"list_reply,omitempty"`
}

// InboundReply identifies the tapped option.
type InboundReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundMedia is an attached media object. Only presence matters to the
// conversation flow; media is never downloaded.
type InboundMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// ExtractEvents flattens a webhook delivery into channel-agnostic events,
// one per message, preserving delivery order. Messages without a sender and
// non-message notifications (status updates) yield nothing.
func ExtractEvents(payload *WebhookPayload) []flow.Event {
	if payload == nil {
		return nil
	}

	var events []flow.Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			profileName := ""
			if len(change.Value.Contacts) > 0 {
				profileName = change.Value.Contacts[0].Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if msg.From == "" {
					continue
				}
				events = append(events, flow.Event{
					Channel:     ChannelName,
					From:        msg.From,
					MessageID:   msg.ID,
					ProfileName: profileName,
					Text:        messageText(msg),
					ReplyID:     buttonReplyID(msg),
					HasImage:    msg.Image != nil,
					HasDocument: msg.Document != nil,
				})
			}
		}
	}
	return events
}

// messageText pulls the user-visible text out of whichever member the
// message type populated. Button taps surface their title so keyword
// matching still works on them.
func messageText(m InboundMessage) string {
	if m.Text != nil && m.Text.Body != "" {
		return m.Text.Body
	}
	if m.Button != nil {
		return m.Button.Text
	}
	if m.Interactive != nil {
		if m.Interactive.ButtonReply != nil {
			return m.Interactive.ButtonReply.Title
		}
		if m.Interactive.ListReply != nil {
			return m.Interactive.ListReply.Title
		}
	}
	return ""
}

func buttonReplyID(m InboundMessage) string {
	if m.Interactive != nil && m.Interactive.Type == "button_reply" && m.Interactive.ButtonReply != nil {
		return m.Interactive.ButtonReply.ID
	}
	return ""
}
