package database

import (
	"database/sql"
	"time"
)

// UserProfile is the durable record for one WhatsApp contact, keyed by
// phone number in E.164 digits. The Metadata column holds the serialized
// conversation envelope; Version increments on every successful save and
// backs the optimistic-concurrency check in SaveUserProfile, so two webhook
// deliveries racing on the same phone cannot silently overwrite each other.
type UserProfile struct {
	Phone        string    `db:"phone" json:"phone"`
	Language     string    `db:"language" json:"language"`
	IsExisting   bool      `db:"is_existing" json:"is_existing"`
	Status       string    `db:"status" json:"status"`
	Stage        string    `db:"stage" json:"stage"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
	Metadata     string    `db:"metadata" json:"metadata"`
	Version      int64     `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LoanRecord stores the latest credit outcome for a phone number: the
// applicant facts the decision was made on, the decision terms, and the
// post-approval fields filled in as the loan progresses. One row per phone;
// a new application replaces the previous outcome but keeps the original
// created_at.
type LoanRecord struct {
	Phone            string          `db:"phone"`
	ReferenceID      string          `db:"reference_id"`
	Status           string          `db:"status"`
	OfferAmount      float64         `db:"offer_amount"`
	APR              float64         `db:"apr"`
	MaxTermMonths    int             `db:"max_term_months"`
	Purpose          string          `db:"purpose"`
	RequestedAmount  float64         `db:"requested_amount"`
	MonthlyIncome    float64         `db:"monthly_income"`
	EmploymentStatus string          `db:"employment_status"`
	Reason           sql.NullString  `db:"reason"`
	NextEMIDue       sql.NullFloat64 `db:"next_emi_due"`
	DocumentsURL     sql.NullString  `db:"documents_url"`
	EMISchedule      string          `db:"emi_schedule"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// InteractionEvent is one append-only audit row: an inbound user message,
// an outbound reply, or a system event such as an agent handoff. Payload is
// a small JSON object whose shape depends on the category.
type InteractionEvent struct {
	ID        int64     `db:"id"`
	Phone     string    `db:"phone"`
	Direction string    `db:"direction"`
	Category  string    `db:"category"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
