package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/him9495-payu/kaira/internal/flow"
	"github.com/him9495-payu/kaira/internal/server"
)

type stubDispatcher struct {
	events []flow.Event
	err    error
}

func (d *stubDispatcher) Dispatch(_ context.Context, ev flow.Event) error {
	d.events = append(d.events, ev)
	return d.err
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(dispatcher *stubDispatcher, pinger *stubPinger) http.Handler {
	handler := server.NewWebhookHandler(dispatcher, pinger, server.Readiness{
		MessengerEnabled: true,
		DecisionEnabled:  true,
	}, "secret-token", nil)
	return server.NewRouter(server.RouterConfig{Webhook: handler})
}

func TestVerifyWebhook(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubDispatcher{}, &stubPinger{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake",
			query:      "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=challenge-123",
			wantStatus: http.StatusOK,
			wantBody:   "challenge-123",
		},
		{
			name:       "token mismatch",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=challenge-123",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "invalid mode",
			query:      "hub.mode=unsubscribe&hub.verify_token=secret-token",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestReceiveWebhook(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{}
	router := newTestRouter(dispatcher, &stubPinger{})

	delivery := `{
	  "object": "whatsapp_business_account",
	  "entry": [{
	    "id": "1",
	    "changes": [{
	      "field": "messages",
	      "value": {
	        "messaging_product": "whatsapp",
	        "contacts": [{"wa_id": "919876543210", "profile": {"name": "Asha"}}],
	        "messages": [{"from": "919876543210", "id": "wamid.1", "type": "text", "text": {"body": "hi"}}]
	      }
	    }]
	  }]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(delivery))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "processed" {
		t.Errorf("status field = %v, want processed", resp["status"])
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("dispatched events = %d, want 1", len(dispatcher.events))
	}
	if dispatcher.events[0].From != "919876543210" || dispatcher.events[0].Text != "hi" {
		t.Errorf("dispatched event = %+v", dispatcher.events[0])
	}
}

func TestReceiveWebhookIgnoresEmpty(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{}
	router := newTestRouter(dispatcher, &stubPinger{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"whatsapp_business_account","entry":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Errorf("body = %q, want ignored status", rec.Body.String())
	}
	if len(dispatcher.events) != 0 {
		t.Errorf("dispatched events = %d, want 0", len(dispatcher.events))
	}
}

func TestReceiveWebhookMalformed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubDispatcher{}, &stubPinger{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReceiveWebhookStillOKOnDispatchError(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{err: errors.New("storage offline")}
	router := newTestRouter(dispatcher, &stubPinger{})

	delivery := `{"entry":[{"changes":[{"value":{"messages":[{"from":"919876543210","id":"wamid.2","type":"text","text":{"body":"hello"}}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(delivery))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite dispatch failure", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubDispatcher{}, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["messenger_enabled"] != true || resp["storage_ok"] != true {
		t.Errorf("readiness echo = %v", resp)
	}
}

func TestHealthDegradedOnStorageFailure(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubDispatcher{}, &stubPinger{err: errors.New("database locked")})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("body = %q, want degraded status", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubDispatcher{}, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics output missing default collectors")
	}
}
