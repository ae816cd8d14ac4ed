// Package bot wires the conversation engine to its channels and storage.
// The dispatcher serializes inbound events per user and persists outcomes
// before delivery; the orchestrator manages every long-lived component.
package bot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/database"
	"github.com/him9495-payu/kaira/internal/flow"
	"github.com/him9495-payu/kaira/internal/metrics"
)

// Messengers maps channel names to their outbound transport.
type Messengers map[string]flow.Messenger

// EscalationNotifier publishes agent handoffs out of band. Implementations
// may be nil-safe; the dispatcher also tolerates a nil interface.
type EscalationNotifier interface {
	PublishEscalation(ctx context.Context, phone, channel, question, language string, at time.Time) error
}

// DispatcherDeps carries the dispatcher's collaborators.
type DispatcherDeps struct {
	Logger     *slog.Logger
	Engine     *flow.Engine
	Profiles   database.ProfileStore
	Loans      database.LoanStore
	Audits     database.AuditStore
	Messengers Messengers
	Notifier   EscalationNotifier
	Dispatch   config.DispatchConfig
	Now        func() time.Time
}

// Dispatcher feeds inbound events through the flow engine. Events for the
// same user run strictly one at a time, every profile save is an optimistic
// concurrency write, and a conflicting save replays the whole event against
// fresh state. Replies go out only after the session and any loan outcome
// are durably recorded.
type Dispatcher struct {
	log         *slog.Logger
	engine      *flow.Engine
	profiles    database.ProfileStore
	loans       database.LoanStore
	audits      database.AuditStore
	messengers  Messengers
	notifier    EscalationNotifier
	maxAttempts int
	sendTimeout time.Duration
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher creates a dispatcher from its dependencies.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxAttempts := deps.Dispatch.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		log:         logger.With("component", "dispatcher"),
		engine:      deps.Engine,
		profiles:    deps.Profiles,
		loans:       deps.Loans,
		audits:      deps.Audits,
		messengers:  deps.Messengers,
		notifier:    deps.Notifier,
		maxAttempts: maxAttempts,
		sendTimeout: deps.Dispatch.SendTimeout,
		now:         now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Dispatch handles one inbound event end to end: audit, engine, durable
// writes, then delivery. The returned error covers processing only; send
// and audit failures after a successful save are logged, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev flow.Event) error {
	if ev.From == "" {
		return fmt.Errorf("event sender is required")
	}

	lock := d.lockFor(ev.From)
	lock.Lock()
	defer lock.Unlock()

	start := d.now()
	channel := ev.Channel
	if channel == "" {
		channel = "unknown"
	}

	d.appendAudit(ctx, ev.From, flow.DirectionInbound, "message_received", map[string]any{
		"message_id":   ev.MessageID,
		"channel":      channel,
		"text":         ev.Text,
		"reply_id":     ev.ReplyID,
		"has_image":    ev.HasImage,
		"has_document": ev.HasDocument,
	})

	var (
		res *flow.Result
		st  *flow.State
		err error
	)
	for attempt := 1; ; attempt++ {
		res, st, err = d.processOnce(ctx, ev)
		if err == nil {
			break
		}
		if errors.Is(err, database.ErrStaleProfile) && attempt < d.maxAttempts {
			metrics.ProfileConflicts.Inc()
			d.log.WarnContext(ctx, "Profile save conflicted, replaying event",
				"phone", ev.From, "attempt", attempt)
			continue
		}

		d.sendErrorReply(ctx, ev, st)
		metrics.EventsProcessed.WithLabelValues(channel, "error").Inc()
		metrics.EventDuration.WithLabelValues(channel).Observe(d.now().Sub(start).Seconds())
		return fmt.Errorf("failed to process event from %s: %w", ev.From, err)
	}

	d.deliver(ctx, ev, st, res)

	metrics.EventsProcessed.WithLabelValues(channel, "ok").Inc()
	metrics.EventDuration.WithLabelValues(channel).Observe(d.now().Sub(start).Seconds())
	return nil
}

// lockFor returns the serialization lock for one user, creating it on first
// contact.
func (d *Dispatcher) lockFor(phone string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		d.locks[phone] = l
	}
	return l
}

// processOnce runs one engine pass and persists its outcome. A loan outcome
// is written before the session so the conversation can never advance past
// an unrecorded decision; the profile save reports ErrStaleProfile when a
// concurrent writer won.
func (d *Dispatcher) processOnce(ctx context.Context, ev flow.Event) (*flow.Result, *flow.State, error) {
	profile, err := d.profiles.GetUserProfile(ctx, ev.From)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = &database.UserProfile{
			Phone:    ev.From,
			Status:   flow.StatusProspect,
			Stage:    flow.StageDiscovery,
			Metadata: "{}",
		}
	}

	st := &flow.State{
		Phone:      profile.Phone,
		Language:   flow.Language(profile.Language),
		IsExisting: profile.IsExisting,
		Status:     profile.Status,
		Stage:      profile.Stage,
		Meta:       flow.ParseMeta(profile.Metadata),
	}

	res, err := d.engine.Handle(ctx, ev, st)
	if err != nil {
		return nil, st, err
	}

	if res.Loan != nil {
		if err := d.loans.UpsertLoanRecord(ctx, loanRecord(ev.From, res.Loan)); err != nil {
			return nil, st, fmt.Errorf("failed to record loan outcome: %w", err)
		}
		metrics.LoanDecisions.WithLabelValues(res.Loan.Status).Inc()
	}

	meta, err := st.Meta.Marshal()
	if err != nil {
		return nil, st, fmt.Errorf("failed to serialize session: %w", err)
	}
	profile.Language = string(st.Language)
	profile.IsExisting = st.IsExisting
	profile.Status = st.Status
	profile.Stage = st.Stage
	profile.Metadata = meta
	profile.LastActivity = d.now().UTC()

	if err := d.profiles.SaveUserProfile(ctx, profile); err != nil {
		return nil, st, err
	}
	return res, st, nil
}

// deliver sends the result's messages and records its audit trail. Nothing
// here affects the already-persisted session.
func (d *Dispatcher) deliver(ctx context.Context, ev flow.Event, st *flow.State, res *flow.Result) {
	channel := ev.Channel
	if channel == "" {
		channel = "unknown"
	}

	messenger := d.messengers[ev.Channel]
	if messenger == nil && len(res.Messages) > 0 {
		d.log.ErrorContext(ctx, "No messenger for channel, dropping replies",
			"channel", ev.Channel, "messages", len(res.Messages))
	}
	if messenger != nil {
		for _, msg := range res.Messages {
			if err := d.send(ctx, messenger, ev.From, msg); err != nil {
				metrics.SendFailures.WithLabelValues(channel, string(msg.Kind)).Inc()
				d.log.ErrorContext(ctx, "Failed to send reply",
					"error", err, "phone", ev.From, "kind", msg.Kind)
				continue
			}
			metrics.MessagesSent.WithLabelValues(channel, string(msg.Kind)).Inc()
		}
	}

	for _, a := range res.Audits {
		d.appendAudit(ctx, ev.From, a.Direction, a.Category, a.Payload)
	}

	if res.Escalation != nil {
		metrics.Escalations.Inc()
		if d.notifier != nil {
			err := d.notifier.PublishEscalation(ctx, ev.From, ev.Channel,
				res.Escalation.Question, string(st.Language), res.Escalation.At)
			if err != nil {
				d.log.ErrorContext(ctx, "Failed to publish escalation",
					"error", err, "phone", ev.From)
			}
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, m flow.Messenger, to string, msg flow.Message) error {
	sendCtx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	switch msg.Kind {
	case flow.MessageChoice:
		return m.SendChoice(sendCtx, to, msg.Body, msg.Buttons)
	case flow.MessageDocument:
		return m.SendDocument(sendCtx, to, msg.Link, msg.Filename)
	default:
		return m.SendText(sendCtx, to, msg.Body)
	}
}

// sendErrorReply tells the user something went wrong, in their language
// when known. Best effort: a failed processing pass must still answer.
func (d *Dispatcher) sendErrorReply(ctx context.Context, ev flow.Event, st *flow.State) {
	messenger := d.messengers[ev.Channel]
	if messenger == nil {
		return
	}

	lang := flow.DefaultLanguage
	if st != nil {
		switch {
		case st.Meta != nil && st.Meta.Session.Language != "":
			lang = st.Meta.Session.Language
		case st.Language != "":
			lang = st.Language
		}
	}

	msg := flow.Message{Kind: flow.MessageText, Body: flow.ErrorText(lang)}
	if err := d.send(ctx, messenger, ev.From, msg); err != nil {
		d.log.ErrorContext(ctx, "Failed to send error reply", "error", err, "phone", ev.From)
	}
}

// appendAudit records one interaction timeline entry, best effort.
func (d *Dispatcher) appendAudit(ctx context.Context, phone, direction, category string, payload map[string]any) {
	body := "{}"
	if len(payload) > 0 {
		b, err := json.Marshal(payload)
		if err != nil {
			d.log.WarnContext(ctx, "Failed to marshal audit payload", "error", err, "category", category)
		} else {
			body = string(b)
		}
	}

	event := &database.InteractionEvent{
		Phone:     phone,
		Direction: direction,
		Category:  category,
		Payload:   body,
	}
	if err := d.audits.AppendInteraction(ctx, event); err != nil {
		d.log.WarnContext(ctx, "Failed to record interaction", "error", err, "category", category)
	}
}

// loanRecord maps an engine loan outcome onto the storage row.
func loanRecord(phone string, up *flow.LoanUpsert) *database.LoanRecord {
	rec := &database.LoanRecord{
		Phone:            phone,
		ReferenceID:      up.Decision.ReferenceID,
		Status:           up.Status,
		OfferAmount:      up.Decision.OfferAmount,
		APR:              up.Decision.APR,
		MaxTermMonths:    up.Decision.MaxTermMonths,
		Purpose:          up.Application.Purpose,
		RequestedAmount:  up.Application.RequestedAmount,
		MonthlyIncome:    up.Application.MonthlyIncome,
		EmploymentStatus: up.Application.Employment,
	}
	if up.Decision.Reason != "" {
		rec.Reason = sql.NullString{String: up.Decision.Reason, Valid: true}
	}
	if up.NextEMIDue > 0 {
		rec.NextEMIDue = sql.NullFloat64{Float64: up.NextEMIDue, Valid: true}
	}
	return rec
}
