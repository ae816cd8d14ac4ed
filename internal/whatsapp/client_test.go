package whatsapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/flow"
	"github.com/him9495-payu/kaira/internal/whatsapp"
)

type capturedRequest struct {
	path    string
	auth    string
	payload map[string]any
}

// newCaptureServer returns a client pointed at a test server plus a channel
// delivering each request the server receives.
func newCaptureServer(t *testing.T, status int, respBody string) (*whatsapp.Client, <-chan capturedRequest) {
	t.Helper()

	requests := make(chan capturedRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		requests <- capturedRequest{
			path:    r.URL.Path,
			auth:    r.Header.Get("Authorization"),
			payload: payload,
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)

	cfg := config.WhatsAppConfig{
		Token:          "test-token",
		PhoneNumberID:  "105551234",
		VerifyToken:    "verify",
		BaseURL:        srv.URL,
		APIVersion:     "v19.0",
		RequestTimeout: 5 * time.Second,
	}
	return whatsapp.NewClient(cfg, nil), requests
}

func okResponse() string {
	return `{"messaging_product":"whatsapp","messages":[{"id":"wamid.test"}]}`
}

func TestSendTextPayload(t *testing.T) {
	t.Parallel()

	client, requests := newCaptureServer(t, http.StatusOK, okResponse())

	if err := client.SendText(context.Background(), "919876543210", "Hello!"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	req := <-requests
	if req.path != "/v19.0/105551234/messages" {
		t.Errorf("request path = %q, want /v19.0/105551234/messages", req.path)
	}
	if req.auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", req.auth)
	}
	if got := req.payload["messaging_product"]; got != "whatsapp" {
		t.Errorf("messaging_product = %v, want whatsapp", got)
	}
	if got := req.payload["to"]; got != "919876543210" {
		t.Errorf("to = %v, want 919876543210", got)
	}
	if got := req.payload["type"]; got != "text" {
		t.Errorf("type = %v, want text", got)
	}
	text, ok := req.payload["text"].(map[string]any)
	if !ok {
		t.Fatalf("text member missing from payload: %v", req.payload)
	}
	if text["body"] != "Hello!" {
		t.Errorf("text.body = %v, want Hello!", text["body"])
	}
}

func TestSendChoicePayload(t *testing.T) {
	t.Parallel()

	client, requests := newCaptureServer(t, http.StatusOK, okResponse())

	buttons := []flow.Button{
		{ID: "intent_get_loan", Label: "Get a loan"},
		{ID: "intent_support", Label: "Support"},
	}
	if err := client.SendChoice(context.Background(), "919876543210", "How can we help?", buttons); err != nil {
		t.Fatalf("SendChoice() error = %v", err)
	}

	req := <-requests
	if got := req.payload["type"]; got != "interactive" {
		t.Fatalf("type = %v, want interactive", got)
	}
	interactive := req.payload["interactive"].(map[string]any)
	if got := interactive["type"]; got != "button" {
		t.Errorf("interactive.type = %v, want button", got)
	}
	body := interactive["body"].(map[string]any)
	if body["text"] != "How can we help?" {
		t.Errorf("interactive.body.text = %v", body["text"])
	}
	action := interactive["action"].(map[string]any)
	rendered, ok := action["buttons"].([]any)
	if !ok || len(rendered) != 2 {
		t.Fatalf("action.buttons = %v, want 2 entries", action["buttons"])
	}
	first := rendered[0].(map[string]any)
	if first["type"] != "reply" {
		t.Errorf("button type = %v, want reply", first["type"])
	}
	reply := first["reply"].(map[string]any)
	if reply["id"] != "intent_get_loan" || reply["title"] != "Get a loan" {
		t.Errorf("button reply = %v", reply)
	}
}

func TestSendChoiceTruncatesAndCaps(t *testing.T) {
	t.Parallel()

	client, requests := newCaptureServer(t, http.StatusOK, okResponse())

	longLabel := "This label is far longer than the channel allows"
	hindiLabel := "ऋण आवेदन जारी रखने के लिए यहाँ दबाएँ"
	buttons := []flow.Button{
		{ID: "b1", Label: longLabel},
		{ID: "b2", Label: hindiLabel},
		{ID: "b3", Label: "Short"},
		{ID: "b4", Label: "Dropped"},
	}
	if err := client.SendChoice(context.Background(), "919876543210", "Pick one", buttons); err != nil {
		t.Fatalf("SendChoice() error = %v", err)
	}

	req := <-requests
	interactive := req.payload["interactive"].(map[string]any)
	action := interactive["action"].(map[string]any)
	rendered := action["buttons"].([]any)
	if len(rendered) != 3 {
		t.Fatalf("buttons sent = %d, want 3", len(rendered))
	}

	title0 := rendered[0].(map[string]any)["reply"].(map[string]any)["title"].(string)
	if want := string([]rune(longLabel)[:20]); title0 != want {
		t.Errorf("truncated title = %q, want %q", title0, want)
	}
	title1 := rendered[1].(map[string]any)["reply"].(map[string]any)["title"].(string)
	if want := string([]rune(hindiLabel)[:20]); title1 != want {
		t.Errorf("truncated hindi title = %q, want %q", title1, want)
	}
	if got := len([]rune(title1)); got != 20 {
		t.Errorf("hindi title rune length = %d, want 20", got)
	}
	title2 := rendered[2].(map[string]any)["reply"].(map[string]any)["title"].(string)
	if title2 != "Short" {
		t.Errorf("short title = %q, want unchanged", title2)
	}
}

func TestSendChoiceRequiresButtons(t *testing.T) {
	t.Parallel()

	client, _ := newCaptureServer(t, http.StatusOK, okResponse())

	if err := client.SendChoice(context.Background(), "919876543210", "Pick one", nil); err == nil {
		t.Fatal("SendChoice() with no buttons: expected error")
	}
}

func TestSendDocumentPayload(t *testing.T) {
	t.Parallel()

	client, requests := newCaptureServer(t, http.StatusOK, okResponse())

	err := client.SendDocument(context.Background(), "919876543210", "https://cdn.example.com/agreement.pdf", "Customer_Agreement.pdf")
	if err != nil {
		t.Fatalf("SendDocument() error = %v", err)
	}

	req := <-requests
	if got := req.payload["type"]; got != "document" {
		t.Fatalf("type = %v, want document", got)
	}
	doc := req.payload["document"].(map[string]any)
	if doc["link"] != "https://cdn.example.com/agreement.pdf" {
		t.Errorf("document.link = %v", doc["link"])
	}
	if doc["filename"] != "Customer_Agreement.pdf" {
		t.Errorf("document.filename = %v", doc["filename"])
	}
}

func TestSendErrorStatus(t *testing.T) {
	t.Parallel()

	errBody := `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`
	client, requests := newCaptureServer(t, http.StatusBadRequest, errBody)

	err := client.SendText(context.Background(), "919876543210", "Hello!")
	if err == nil {
		t.Fatal("SendText() on 400 response: expected error")
	}
	if !strings.Contains(err.Error(), "Invalid parameter") {
		t.Errorf("error = %v, want graph API message included", err)
	}
	<-requests
}

func TestDryRunSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := config.WhatsAppConfig{
		VerifyToken:    "verify",
		BaseURL:        srv.URL,
		APIVersion:     "v19.0",
		RequestTimeout: 5 * time.Second,
	}
	client := whatsapp.NewClient(cfg, nil)

	if err := client.SendText(context.Background(), "919876543210", "Hello!"); err != nil {
		t.Fatalf("SendText() in dry-run = %v", err)
	}
	if err := client.SendChoice(context.Background(), "919876543210", "Pick", []flow.Button{{ID: "a", Label: "A"}}); err != nil {
		t.Fatalf("SendChoice() in dry-run = %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("dry-run client made %d HTTP calls, want 0", got)
	}
}
