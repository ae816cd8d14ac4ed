package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrStaleProfile is returned by SaveUserProfile when the stored profile
// version no longer matches the version the caller loaded. The caller must
// re-read the profile and replay its change.
var ErrStaleProfile = errors.New("user profile version conflict")

// ProfileStore defines persistence for conversation profiles.
type ProfileStore interface {
	// GetUserProfile retrieves a profile by phone. Returns nil, nil if not found.
	GetUserProfile(ctx context.Context, phone string) (*UserProfile, error)

	// SaveUserProfile inserts or updates a profile guarded by its Version
	// token. A concurrent write to the same phone yields ErrStaleProfile.
	SaveUserProfile(ctx context.Context, profile *UserProfile) error

	// ListInactiveProfiles retrieves up to 'limit' profiles whose last
	// activity is older than 'cutoff', oldest first.
	ListInactiveProfiles(ctx context.Context, cutoff time.Time, limit int) ([]*UserProfile, error)
}

// LoanStore defines persistence for loan records.
type LoanStore interface {
	// GetLoanRecord retrieves the loan record for a phone. Returns nil, nil if not found.
	GetLoanRecord(ctx context.Context, phone string) (*LoanRecord, error)

	// UpsertLoanRecord inserts or replaces the loan record for a phone,
	// carrying forward created_at and any stored EMI schedule on update.
	UpsertLoanRecord(ctx context.Context, record *LoanRecord) error
}

// AuditStore defines the append-only interaction trail.
type AuditStore interface {
	// AppendInteraction appends one interaction event.
	AppendInteraction(ctx context.Context, event *InteractionEvent) error
}

// Store is the full persistence surface backing the conversation service.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	ProfileStore
	LoanStore
	AuditStore

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUserProfile retrieves a profile by phone. Returns nil, nil if not found.
func (s *sqlxStore) GetUserProfile(ctx context.Context, phone string) (*UserProfile, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile UserProfile
	query := `SELECT phone, language, is_existing, status, stage, last_activity, metadata, version, created_at, updated_at
	          FROM user_profiles WHERE phone = ?`

	err := s.db.GetContext(ctx, &profile, query, phone)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First contact from this phone, not an error.
		s.logger.DebugContext(ctx, "No user profile found", "phone", phone)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user profile",
			"phone", phone, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get user profile for phone %s: %w", phone, err)
	}

	s.logger.DebugContext(ctx, "Successfully retrieved user profile", "phone", phone, "version", profile.Version)
	return &profile, nil
}

// SaveUserProfile inserts or updates a profile guarded by its Version token.
// A fresh profile (Version 0) is inserted at version 1; an existing one is
// updated only when the stored version still matches, bumping it by one. Any
// mismatch means another writer got there first and yields ErrStaleProfile.
func (s *sqlxStore) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("cannot save nil user profile")
	}
	if profile.Phone == "" {
		return fmt.Errorf("user profile must have a phone")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.LastActivity.IsZero() {
		profile.LastActivity = now
	}

	var (
		result    sql.Result
		err       error
		operation string
	)

	if profile.Version == 0 {
		operation = "created"
		query := `
			INSERT INTO user_profiles (
				phone, language, is_existing, status, stage,
				last_activity, metadata, version, created_at, updated_at
			) VALUES (
				:phone, :language, :is_existing, :status, :stage,
				:last_activity, :metadata, 1, :created_at, :updated_at
			)
			ON CONFLICT(phone) DO NOTHING
		`
		result, err = s.db.NamedExecContext(ctx, query, profile)
	} else {
		operation = "updated"
		query := `
			UPDATE user_profiles SET
				language = :language,
				is_existing = :is_existing,
				status = :status,
				stage = :stage,
				last_activity = :last_activity,
				metadata = :metadata,
				version = :version + 1,
				updated_at = :updated_at
			WHERE phone = :phone AND version = :version
		`
		result, err = s.db.NamedExecContext(ctx, query, profile)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile",
			"phone", profile.Phone, "version", profile.Version, "error", err)
		return fmt.Errorf("failed to save user profile for phone %s: %w", profile.Phone, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.ErrorContext(ctx, "Could not get affected row count when saving profile",
			"phone", profile.Phone, "error", err)
		return fmt.Errorf("failed to confirm user profile save for phone %s: %w", profile.Phone, err)
	}
	if affected == 0 {
		s.logger.WarnContext(ctx, "User profile version conflict",
			"phone", profile.Phone, "version", profile.Version)
		return fmt.Errorf("user profile %s at version %d: %w", profile.Phone, profile.Version, ErrStaleProfile)
	}

	// Mirror the stored version so the in-memory copy stays current.
	profile.Version++

	s.logger.DebugContext(ctx, "User profile saved successfully",
		"operation", operation, "phone", profile.Phone, "version", profile.Version)
	return nil
}

// ListInactiveProfiles retrieves up to 'limit' profiles whose last activity
// is older than 'cutoff', oldest first.
func (s *sqlxStore) ListInactiveProfiles(ctx context.Context, cutoff time.Time, limit int) ([]*UserProfile, error) {
	if limit <= 0 {
		limit = 50
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "default_limit", limit)
	} else if limit > 500 {
		limit = 500
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "capped_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profiles []*UserProfile
	query := `SELECT phone, language, is_existing, status, stage, last_activity, metadata, version, created_at, updated_at
	          FROM user_profiles
	          WHERE last_activity < ?
	          ORDER BY last_activity ASC
	          LIMIT ?`

	s.logger.DebugContext(ctx, "Fetching inactive profiles", "cutoff", cutoff, "limit", limit)
	err := s.db.SelectContext(ctx, &profiles, query, cutoff.UTC(), limit)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching inactive profiles", "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting inactive profiles", "error", err)
		return nil, fmt.Errorf("failed to get inactive profiles: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched inactive profiles successfully", "count", len(profiles))
	return profiles, nil
}

// GetLoanRecord retrieves the loan record for a phone. Returns nil, nil if not found.
func (s *sqlxStore) GetLoanRecord(ctx context.Context, phone string) (*LoanRecord, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var record LoanRecord
	query := `SELECT phone, reference_id, status, offer_amount, apr, max_term_months, purpose,
	                 requested_amount, monthly_income, employment_status, reason, next_emi_due,
	                 documents_url, emi_schedule, created_at, updated_at
	          FROM loan_records WHERE phone = ?`

	err := s.db.GetContext(ctx, &record, query, phone)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No loan record found", "phone", phone)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching loan record",
			"phone", phone, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting loan record", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get loan record for phone %s: %w", phone, err)
	}

	s.logger.DebugContext(ctx, "Successfully retrieved loan record",
		"phone", phone, "reference_id", record.ReferenceID)
	return &record, nil
}

// UpsertLoanRecord inserts or replaces the loan record for a phone. A new
// application overwrites the previous outcome, but created_at survives from
// the first row and a stored EMI schedule is kept when the incoming record
// carries none.
func (s *sqlxStore) UpsertLoanRecord(ctx context.Context, record *LoanRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil loan record")
	}
	if record.Phone == "" {
		return fmt.Errorf("loan record must have a phone")
	}
	if record.ReferenceID == "" {
		return fmt.Errorf("loan record must have a reference_id")
	}
	if record.Status == "" {
		return fmt.Errorf("loan record must have a status")
	}

	now := time.Now().UTC()
	record.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving loan record",
			"phone", record.Phone, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var existing LoanRecord
	err = tx.GetContext(ctx, &existing,
		`SELECT created_at, emi_schedule FROM loan_records WHERE phone = ?`, record.Phone)

	exists := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false

	case err != nil:
		s.logger.ErrorContext(ctx, "Error checking if loan record exists",
			"phone", record.Phone, "error", err)
		return fmt.Errorf("failed to check loan record for phone %s: %w", record.Phone, err)
	}

	var result sql.Result

	if exists {
		record.CreatedAt = existing.CreatedAt
		if record.EMISchedule == "" {
			record.EMISchedule = existing.EMISchedule
		}
		query := `
			UPDATE loan_records SET
				reference_id = :reference_id,
				status = :status,
				offer_amount = :offer_amount,
				apr = :apr,
				max_term_months = :max_term_months,
				purpose = :purpose,
				requested_amount = :requested_amount,
				monthly_income = :monthly_income,
				employment_status = :employment_status,
				reason = :reason,
				next_emi_due = :next_emi_due,
				documents_url = :documents_url,
				emi_schedule = :emi_schedule,
				updated_at = :updated_at
			WHERE phone = :phone
		`
		result, err = tx.NamedExecContext(ctx, query, record)
	} else {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if record.EMISchedule == "" {
			record.EMISchedule = "[]"
		}
		query := `
			INSERT INTO loan_records (
				phone, reference_id, status, offer_amount, apr, max_term_months,
				purpose, requested_amount, monthly_income, employment_status,
				reason, next_emi_due, documents_url, emi_schedule, created_at, updated_at
			) VALUES (
				:phone, :reference_id, :status, :offer_amount, :apr, :max_term_months,
				:purpose, :requested_amount, :monthly_income, :employment_status,
				:reason, :next_emi_due, :documents_url, :emi_schedule, :created_at, :updated_at
			)
		`
		result, err = tx.NamedExecContext(ctx, query, record)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving loan record",
			"phone", record.Phone, "reference_id", record.ReferenceID, "error", err)
		return fmt.Errorf("failed to save loan record for phone %s: %w", record.Phone, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when saving loan record",
			"phone", record.Phone, "error", err)
	} else if affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving loan record",
			"phone", record.Phone, "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"phone", record.Phone, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil

	operation := "updated"
	if !exists {
		operation = "created"
	}
	s.logger.DebugContext(ctx, "Loan record saved successfully",
		"operation", operation, "phone", record.Phone, "reference_id", record.ReferenceID, "status", record.Status)

	return nil
}

// AppendInteraction appends one interaction event to the audit trail.
func (s *sqlxStore) AppendInteraction(ctx context.Context, event *InteractionEvent) error {
	if event == nil {
		return fmt.Errorf("cannot append nil interaction event")
	}
	if event.Phone == "" {
		return fmt.Errorf("interaction event must have a phone")
	}
	if event.Direction == "" {
		return fmt.Errorf("interaction event must have a direction")
	}
	if event.Category == "" {
		return fmt.Errorf("interaction event must have a category")
	}
	if event.Payload == "" {
		event.Payload = "{}"
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO interaction_events (phone, direction, category, payload, created_at)
        VALUES (:phone, :direction, :category, :payload, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending interaction event",
			"phone", event.Phone, "category", event.Category, "error", err)
		return fmt.Errorf("failed to append interaction event (phone %s, category %s): %w",
			event.Phone, event.Category, err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		event.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after appending interaction event",
			"phone", event.Phone, "category", event.Category, "error", err)
	}

	s.logger.DebugContext(ctx, "Interaction event appended successfully",
		"phone", event.Phone, "direction", event.Direction, "category", event.Category, "event_id", event.ID)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// Give competing writers a grace period before VACUUM takes the lock.
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
