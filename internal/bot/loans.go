package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/him9495-payu/kaira/internal/database"
)

// LoanSummaryReader renders a user's stored loan record for conversational
// display and support context.
type LoanSummaryReader struct {
	loans database.LoanStore
}

// NewLoanSummaryReader creates a reader over the loan store.
func NewLoanSummaryReader(loans database.LoanStore) *LoanSummaryReader {
	return &LoanSummaryReader{loans: loans}
}

// Summary returns the loan record for phone as indented JSON, or found=false
// when no record exists. Only user-facing fields are included.
func (r *LoanSummaryReader) Summary(ctx context.Context, phone string) (string, bool, error) {
	rec, err := r.loans.GetLoanRecord(ctx, phone)
	if err != nil {
		return "", false, fmt.Errorf("failed to load loan record: %w", err)
	}
	if rec == nil {
		return "", false, nil
	}

	view := map[string]any{
		"reference_id":    rec.ReferenceID,
		"status":          rec.Status,
		"offer_amount":    rec.OfferAmount,
		"apr":             rec.APR,
		"max_term_months": rec.MaxTermMonths,
		"purpose":         rec.Purpose,
	}
	if rec.NextEMIDue.Valid {
		view["next_emi_due"] = rec.NextEMIDue.Float64
	}

	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", false, fmt.Errorf("failed to render loan record: %w", err)
	}
	return string(b), true, nil
}
