// Package whatsapp implements the Meta WhatsApp Cloud API channel: an
// outbound message client and the webhook payload decoding for inbound
// events.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/flow"
)

// maxButtonTitleRunes is the Cloud API cap on reply button titles. Longer
// labels are truncated before sending.
const maxButtonTitleRunes = 20

// Client sends messages through the Cloud API graph endpoint
// /{version}/{phone_number_id}/messages. It satisfies flow.Messenger.
//
// Without a token and phone number id the client runs in dry-run mode:
// payloads are logged at info level instead of posted, which keeps local
// development working without Meta credentials.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
	token      string
	endpoint   string
	dryRun     bool
}

// NewClient creates a Cloud API client from configuration.
func NewClient(cfg config.WhatsAppConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dryRun := cfg.Token == "" || cfg.PhoneNumberID == ""
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        log.With("component", "whatsapp_client"),
		token:      cfg.Token,
		endpoint: fmt.Sprintf("%s/%s/%s/messages",
			strings.TrimSuffix(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		dryRun: dryRun,
	}
	if dryRun {
		c.log.Warn("WhatsApp credentials missing, client running in dry-run mode")
	}
	return c
}

// Enabled reports whether the client has credentials and will actually post
// to the Cloud API.
func (c *Client) Enabled() bool {
	return !c.dryRun
}

// Cloud API wire shapes. Only the message types the conversation produces
// are modeled: text, reply buttons, and document-by-link.
type outboundMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
	Document         *documentPayload    `json:"document,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type interactivePayload struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons []actionButton `json:"buttons"`
}

type actionButton struct {
	Type  string      `json:"type"`
	Reply replyButton `json:"reply"`
}

type replyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type documentPayload struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError is the graph API error envelope.
type apiError struct {
	Err struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("whatsapp API error: %s (type: %s, code: %d)", e.Err.Message, e.Err.Type, e.Err.Code)
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("recipient phone is required")
	}
	return c.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

// SendChoice sends an interactive reply-button message. The Cloud API allows
// at most three buttons per message; extra buttons are dropped with a
// warning since callers are expected to split longer option lists upstream.
func (c *Client) SendChoice(ctx context.Context, to, body string, buttons []flow.Button) error {
	if to == "" {
		return fmt.Errorf("recipient phone is required")
	}
	if len(buttons) == 0 {
		return fmt.Errorf("at least one button is required")
	}
	if len(buttons) > flow.MaxChoiceButtons {
		c.log.WarnContext(ctx, "Dropping extra reply buttons over channel cap",
			"given", len(buttons), "cap", flow.MaxChoiceButtons)
		buttons = buttons[:flow.MaxChoiceButtons]
	}

	action := make([]actionButton, 0, len(buttons))
	for _, b := range buttons {
		action = append(action, actionButton{
			Type:  "reply",
			Reply: replyButton{ID: b.ID, Title: truncateTitle(b.Label)},
		})
	}

	return c.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Body:   interactiveBody{Text: body},
			Action: interactiveAction{Buttons: action},
		},
	})
}

// SendDocument sends a document by public link.
func (c *Client) SendDocument(ctx context.Context, to, link, filename string) error {
	if to == "" {
		return fmt.Errorf("recipient phone is required")
	}
	if link == "" {
		return fmt.Errorf("document link is required")
	}
	return c.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         &documentPayload{Link: link, Filename: filename},
	})
}

func (c *Client) post(ctx context.Context, payload outboundMessage) error {
	if c.dryRun {
		pretty, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dry-run payload: %w", err)
		}
		c.log.InfoContext(ctx, "Dry-run, skipping WhatsApp send", "payload", string(pretty))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr != nil || apiErr.Err.Message == "" {
			return fmt.Errorf("whatsapp send failed with status %d", resp.StatusCode)
		}
		c.log.ErrorContext(ctx, "WhatsApp send rejected", "status", resp.StatusCode, "error", apiErr.Err.Message, "code", apiErr.Err.Code)
		return &apiErr
	}

	var accepted sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err == nil && len(accepted.Messages) > 0 {
		c.log.DebugContext(ctx, "WhatsApp message accepted", "message_id", accepted.Messages[0].ID, "to", payload.To, "type", payload.Type)
	}
	return nil
}

// truncateTitle trims a button label to the channel title cap, rune safe.
func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxButtonTitleRunes {
		return s
	}
	return string(runes[:maxButtonTitleRunes])
}
