// Package decision implements the deterministic credit policy applied to
// completed loan applications: fixed eligibility rules over income, age,
// and consent, with the eligible ceiling derived from monthly income.
package decision

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/flow"
)

// Decline reasons surfaced to the applicant.
const (
	ReasonNoConsent    = "missing credit check consent"
	ReasonLowIncome    = "insufficient monthly income"
	ReasonAgeOutOfBand = "age outside the permitted band"
)

// Headline terms attached to every approval. They mirror the shortest and
// longest offer tiers.
const (
	headlineAPR     = 18.0
	headlineMaxTerm = 12
)

// Evaluator applies the configured thresholds to application snapshots. It
// implements flow.DecisionEvaluator.
type Evaluator struct {
	cfg    config.DecisionConfig
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil logger discards log output.
func NewEvaluator(cfg config.DecisionConfig, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{cfg: cfg, logger: logger.With("component", "decision")}
}

// Evaluate checks an application against the policy rules and returns the
// decision. The same facts always produce the same outcome; only the minted
// reference id differs between calls.
func (e *Evaluator) Evaluate(ctx context.Context, app flow.LoanApplication) (flow.Decision, error) {
	if err := ctx.Err(); err != nil {
		return flow.Decision{}, err
	}
	if err := app.Validate(); err != nil {
		return flow.Decision{}, fmt.Errorf("invalid application: %w", err)
	}

	decision := flow.Decision{ReferenceID: flow.NewReferenceID()}
	switch {
	case !app.Consent:
		decision.Reason = ReasonNoConsent
	case app.MonthlyIncome < e.cfg.MinMonthlyIncome:
		decision.Reason = ReasonLowIncome
	case app.Age < e.cfg.MinAge || app.Age > e.cfg.MaxAge:
		decision.Reason = ReasonAgeOutOfBand
	default:
		decision.Approved = true
		decision.OfferAmount = flow.EligibleCeiling(app.MonthlyIncome)
		decision.APR = headlineAPR
		decision.MaxTermMonths = headlineMaxTerm
	}

	e.logger.DebugContext(ctx, "Application evaluated",
		"phone", app.Phone,
		"approved", decision.Approved,
		"reference_id", decision.ReferenceID,
		"reason", decision.Reason)
	return decision, nil
}
