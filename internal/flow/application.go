package flow

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// LoanApplication is the normalized snapshot of applicant facts submitted
// for a credit decision.
type LoanApplication struct {
	Phone           string  `json:"phone" validate:"required"`
	FullName        string  `json:"full_name" validate:"required"`
	Age             int     `json:"age" validate:"gte=18,lte=75"`
	Employment      string  `json:"employment_status" validate:"required"`
	MonthlyIncome   float64 `json:"monthly_income" validate:"gt=0"`
	Purpose         string  `json:"purpose" validate:"required"`
	RequestedAmount float64 `json:"requested_amount" validate:"gt=0"`
	Consent         bool    `json:"consent_to_credit_check"`
}

var applicationValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the snapshot against the application constraints.
func (a LoanApplication) Validate() error {
	return applicationValidator.Struct(a)
}

// SameFacts reports whether two snapshots agree on every applicant fact that
// feeds the credit decision. Requested amount is excluded: it legitimately
// changes when an offer is chosen.
func (a LoanApplication) SameFacts(b LoanApplication) bool {
	return a.FullName == b.FullName &&
		a.Age == b.Age &&
		a.Employment == b.Employment &&
		a.MonthlyIncome == b.MonthlyIncome &&
		a.Purpose == b.Purpose &&
		a.Consent == b.Consent
}

// BuildApplication assembles a decision-ready snapshot from collected
// answers, filling gaps with conservative defaults. requestedAmount
// overrides the recorded answer when positive, which is how a chosen offer
// amount flows into the final eligibility check.
func BuildApplication(phone string, answers Answers, requestedAmount float64) LoanApplication {
	age := answers.Age
	if age == 0 {
		age = 30
	}
	employment := answers.Employment
	if employment == "" {
		employment = "Other"
	}
	income := answers.MonthlyIncome
	if income == 0 {
		income = 20000
	}
	purpose := answers.Purpose
	if purpose == "" {
		purpose = "Personal"
	}
	requested := requestedAmount
	if requested <= 0 {
		requested = answers.RequestedAmount
	}
	if requested <= 0 {
		requested = income * 2
	}
	requested = math.Min(requested, MaxRequestedAmount)

	return LoanApplication{
		Phone:           phone,
		FullName:        TitleCase(answers.FullName),
		Age:             age,
		Employment:      TitleCase(employment),
		MonthlyIncome:   income,
		Purpose:         Capitalize(purpose),
		RequestedAmount: requested,
		Consent:         answers.Consent,
	}
}

// Decision is the outcome of a credit evaluation: the approval flag, the
// eligible ceiling and headline terms when approved, and a reason when
// declined.
type Decision struct {
	Approved      bool    `json:"approved"`
	ReferenceID   string  `json:"reference_id"`
	OfferAmount   float64 `json:"offer_amount"`
	APR           float64 `json:"apr"`
	MaxTermMonths int     `json:"max_term_months"`
	Reason        string  `json:"reason,omitempty"`
}
