package flow

import (
	"encoding/json"
	"time"
)

// MetaSchemaVersion is the current schema version written into every
// serialized Meta envelope.
const MetaSchemaVersion = 1

// Journey identifies the top-level conversation mode.
type Journey string

// Journey values.
const (
	JourneyNone       Journey = ""
	JourneyOnboarding Journey = "onboarding"
	JourneySupport    Journey = "support"
	JourneyCompleted  Journey = "completed"
)

// Step is the single enumerated session-state tag: exactly one step is active
// per user at any time. The first six values form the onboarding data
// sequence; the rest are the post-offer checkpoints.
type Step string

// Step values.
const (
	StepNone           Step = ""
	StepFullName       Step = "full_name"
	StepDateOfBirth    Step = "dob"
	StepEmployment     Step = "employment_status"
	StepMonthlyIncome  Step = "monthly_income"
	StepPurpose        Step = "purpose"
	StepConsent        Step = "consent_to_credit_check"
	StepOfferSelection Step = "offer_selection"
	StepKYC            Step = "kyc"
	StepSelfie         Step = "selfie"
	StepBankDetails    Step = "bank_details"
	StepNACH           Step = "nach"
	StepAgreement      Step = "agreement"
)

// Answers holds the normalized values collected during the onboarding
// sequence.
type Answers struct {
	FullName        string  `json:"full_name,omitempty"`
	DateOfBirth     string  `json:"dob,omitempty"`
	Age             int     `json:"age,omitempty"`
	Employment      string  `json:"employment_status,omitempty"`
	MonthlyIncome   float64 `json:"monthly_income,omitempty"`
	Purpose         string  `json:"purpose,omitempty"`
	Consent         bool    `json:"consent_to_credit_check,omitempty"`
	RequestedAmount float64 `json:"requested_amount,omitempty"`
}

// Session is the per-user conversation cursor: chosen language, active
// journey, the single active step, and the answers collected so far.
type Session struct {
	Language Language `json:"language,omitempty"`
	Journey  Journey  `json:"journey,omitempty"`
	Step     Step     `json:"step,omitempty"`
	Answers  Answers  `json:"answers"`
}

// Reset clears the session back to its initial state. When keepLanguage is
// true the chosen language survives the reset.
func (s *Session) Reset(keepLanguage bool) {
	lang := s.Language
	*s = Session{}
	if keepLanguage {
		s.Language = lang
	}
}

// Checkpoints records which post-offer verification steps have completed.
type Checkpoints struct {
	KYC       bool `json:"kyc,omitempty"`
	Selfie    bool `json:"selfie,omitempty"`
	Bank      bool `json:"bank,omitempty"`
	NACH      bool `json:"nach,omitempty"`
	Agreement bool `json:"agreement,omitempty"`
}

// BankDetails holds the repayment account captured at the bank-details
// checkpoint.
type BankDetails struct {
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

// Disbursement records the terminal outcome of the final eligibility check.
type Disbursement struct {
	Status    string  `json:"status"`
	Amount    float64 `json:"amount,omitempty"`
	Reference string  `json:"reference,omitempty"`
}

// Disbursement status values.
const (
	DisbursementDisbursed = "disbursed"
	DisbursementRejected  = "rejected"
)

// Escalation records the most recent handoff to a human agent.
type Escalation struct {
	Question string    `json:"question,omitempty"`
	At       time.Time `json:"at"`
}

// Meta is the versioned typed envelope persisted with each user profile. It
// replaces an open metadata bag: every field the flow reads or writes is
// declared here, and unknown keys from older writers are dropped on the next
// save.
type Meta struct {
	SchemaVersion     int              `json:"schema_version"`
	Session           Session          `json:"session"`
	Offers            []Offer          `json:"offers,omitempty"`
	ChosenOffer       *Offer           `json:"chosen_offer,omitempty"`
	Checkpoints       Checkpoints      `json:"checkpoints"`
	BankDetails       *BankDetails     `json:"bank_details,omitempty"`
	Disbursement      *Disbursement    `json:"disbursement,omitempty"`
	Application       *LoanApplication `json:"application,omitempty"`
	LastApplicationID string           `json:"last_application_id,omitempty"`
	LastEscalation    *Escalation      `json:"last_escalation,omitempty"`
	LastNudgedAt      *time.Time       `json:"last_nudged_at,omitempty"`
}

// NewMeta returns an empty envelope at the current schema version.
func NewMeta() *Meta {
	return &Meta{SchemaVersion: MetaSchemaVersion}
}

// ParseMeta decodes a stored envelope. Empty or undecodable input yields a
// fresh envelope so a corrupt profile restarts the conversation instead of
// wedging it.
func ParseMeta(raw string) *Meta {
	if raw == "" || raw == "{}" {
		return NewMeta()
	}
	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return NewMeta()
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MetaSchemaVersion
	}
	return &m
}

// Marshal serializes the envelope for storage.
func (m *Meta) Marshal() (string, error) {
	m.SchemaVersion = MetaSchemaVersion
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// State is the working copy of one user's durable conversation state. The
// engine mutates it in memory; the caller decides whether the mutation is
// persisted.
type State struct {
	Phone      string
	Language   Language
	IsExisting bool
	Status     string
	Stage      string
	Meta       *Meta
}

// Coarse profile lifecycle labels.
const (
	StatusProspect = "prospect"
	StatusCustomer = "customer"

	StageDiscovery   = "discovery"
	StageOnboarding  = "onboarding"
	StageOffers      = "offers"
	StageCheckpoints = "checkpoints"
	StageCompleted   = "completed"
)
