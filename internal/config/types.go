// Package config loads and validates the application configuration from
// defaults, an optional config.yaml file, and KAIRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps every error returned by the config loader.
var ErrConfiguration = errors.New("configuration error")

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultDBPath = "kaira.db"

	DefaultServerAddr            = ":8080"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 15 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultWhatsAppBaseURL    = "https://graph.facebook.com"
	DefaultWhatsAppAPIVersion = "v19.0"
	DefaultWhatsAppTimeout    = 15 * time.Second

	DefaultGeminiModel         = "gemini-2.0-flash"
	DefaultGeminiTemperature   = 0.4
	DefaultGeminiMaxRetries    = 2
	DefaultGeminiRetryDelaySec = 2

	DefaultDecisionMinIncome = 20000
	DefaultDecisionMinAge    = 21
	DefaultDecisionMaxAge    = 60

	DefaultDispatchMaxAttempts = 3
	DefaultDispatchSendTimeout = 30 * time.Second

	DefaultInactivityThreshold = 24 * time.Hour

	DefaultSQLMaintenanceSchedule  = "0 0 3 * * *"
	DefaultInactivityNudgeSchedule = "0 */30 * * * *"
)

// Config holds the full application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Flow      FlowConfig      `mapstructure:"flow"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RedisConfig holds the optional Redis profile store settings.
// When Enabled is false the SQLite store serves profiles as well.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// WhatsAppConfig holds the Meta Cloud API settings. An empty Token puts the
// client in dry-run mode: payloads are logged instead of sent.
type WhatsAppConfig struct {
	Token                string        `mapstructure:"token"`
	PhoneNumberID        string        `mapstructure:"phone_number_id"`
	VerifyToken          string        `mapstructure:"verify_token" validate:"required"`
	BaseURL              string        `mapstructure:"base_url" validate:"required,url"`
	APIVersion           string        `mapstructure:"api_version" validate:"required"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AgreementDocumentURL string        `mapstructure:"agreement_document_url"`
}

// TelegramConfig holds the optional Telegram channel settings.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
}

// GeminiConfig holds the Gemini AI settings used by the support responder.
// An empty APIKey disables the responder; support answers fall back to the
// knowledge base.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name" validate:"required"`
	Temperature       float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// DecisionConfig holds the thresholds used by the credit decision rules.
type DecisionConfig struct {
	MinMonthlyIncome float64 `mapstructure:"min_monthly_income" validate:"gt=0"`
	MinAge           int     `mapstructure:"min_age" validate:"gte=18"`
	MaxAge           int     `mapstructure:"max_age" validate:"gtefield=MinAge"`
}

// NotifyConfig holds the optional SNS agent-handoff settings. An empty
// TopicARN disables publishing.
type NotifyConfig struct {
	TopicARN string `mapstructure:"topic_arn"`
	Region   string `mapstructure:"region"`
}

// DispatchConfig holds inbound event dispatch settings.
type DispatchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
}

// FlowConfig holds conversation flow tuning parameters.
type FlowConfig struct {
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold" validate:"gt=0"`
}

// SchedulerConfig holds the scheduled task definitions keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate checks the configuration using struct tags plus the cross-field
// rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.WhatsApp.Token != "" && c.WhatsApp.PhoneNumberID == "" {
		return errors.New("whatsapp.phone_number_id is required when whatsapp.token is set")
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return fmt.Errorf("scheduler task %q is enabled but has no schedule", name)
		}
	}

	return nil
}
