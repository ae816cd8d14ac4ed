package flow

import (
	"context"
	"strings"
)

// MaxChoiceButtons is the per-message interactive button cap imposed by the
// messaging channel. Longer option lists are split across messages.
const MaxChoiceButtons = 3

// Button is one tappable reply option.
type Button struct {
	ID    string
	Label string
}

// MessageKind discriminates outbound message intents.
type MessageKind string

// Message kinds.
const (
	MessageText     MessageKind = "text"
	MessageChoice   MessageKind = "choice"
	MessageDocument MessageKind = "document"
)

// Message is one channel-agnostic outbound intent produced by the engine.
type Message struct {
	Kind     MessageKind
	Body     string
	Buttons  []Button
	Link     string
	Filename string
}

// Messenger delivers outbound intents on a concrete channel. Implementations
// report transport errors but offer no delivery confirmation.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendChoice(ctx context.Context, to, body string, buttons []Button) error
	SendDocument(ctx context.Context, to, link, filename string) error
}

// AuditEntry is one interaction timeline entry emitted by the engine.
type AuditEntry struct {
	Direction string
	Category  string
	Payload   map[string]any
}

// Audit directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionSystem   = "system"
)

// LoanUpsert is a durable loan-record write the caller must complete before
// persisting the mutated session. A failed upsert aborts the whole event so
// the session never advances past a fact that was not recorded.
type LoanUpsert struct {
	Application LoanApplication
	Decision    Decision
	Status      string
	NextEMIDue  float64
}

// Result is everything one handled event produced: ordered outbound
// messages, timeline entries, an optional gating loan write, and an optional
// agent escalation for out-of-band notification. Session mutations live on
// the State the engine was handed.
type Result struct {
	Messages   []Message
	Audits     []AuditEntry
	Loan       *LoanUpsert
	Escalation *Escalation
}

func (r *Result) text(body string) {
	r.Messages = append(r.Messages, Message{Kind: MessageText, Body: body})
}

// choice appends one interactive message, trusting the caller to respect the
// button cap.
func (r *Result) choice(body string, buttons ...Button) {
	r.Messages = append(r.Messages, Message{Kind: MessageChoice, Body: body, Buttons: buttons})
}

// choiceSplit spreads an arbitrary option list across messages of at most
// MaxChoiceButtons each. The first message carries body; continuation
// messages carry a fixed "more options" body.
func (r *Result) choiceSplit(body string, buttons []Button) {
	for start := 0; start < len(buttons); start += MaxChoiceButtons {
		end := start + MaxChoiceButtons
		if end > len(buttons) {
			end = len(buttons)
		}
		b := body
		if start > 0 {
			b = "More options:"
		}
		r.choice(b, buttons[start:end]...)
	}
}

func (r *Result) document(link, filename, caption string) {
	r.Messages = append(r.Messages, Message{Kind: MessageDocument, Body: caption, Link: link, Filename: filename})
}

func (r *Result) audit(direction, category string, payload map[string]any) {
	r.Audits = append(r.Audits, AuditEntry{Direction: direction, Category: category, Payload: payload})
}

// renderTemplate substitutes {name} placeholders in a prompt template.
func renderTemplate(tpl string, vars map[string]string) string {
	out := tpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
