package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional)
// 3. KAIRA_* environment variables (a .env file is honored when present)
func LoadConfig(path string) (*Config, error) {
	// Environment variables from .env take effect before viper reads them.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, reading from environment")
	}

	setDefaults()

	if err := loadConfig(path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// loadConfig initializes and loads the configuration using viper
func loadConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("KAIRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow missing config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %v", err)
		}
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters.
// Every key is registered so KAIRA_* environment variables bind even when
// the config file omits the section.
func setDefaults() {
	viper.SetDefault("logger.level", DefaultLogLevel)
	viper.SetDefault("logger.json", DefaultLogJSON)

	viper.SetDefault("database.path", DefaultDBPath)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("server.addr", DefaultServerAddr)
	viper.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viper.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viper.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	viper.SetDefault("whatsapp.token", "")
	viper.SetDefault("whatsapp.phone_number_id", "")
	viper.SetDefault("whatsapp.verify_token", "kaira-verify-token")
	viper.SetDefault("whatsapp.base_url", DefaultWhatsAppBaseURL)
	viper.SetDefault("whatsapp.api_version", DefaultWhatsAppAPIVersion)
	viper.SetDefault("whatsapp.request_timeout", DefaultWhatsAppTimeout)
	viper.SetDefault("whatsapp.agreement_document_url", "")

	viper.SetDefault("telegram.enabled", false)
	viper.SetDefault("telegram.token", "")

	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model_name", DefaultGeminiModel)
	viper.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	viper.SetDefault("gemini.system_instruction", "")
	viper.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	viper.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelaySec)

	viper.SetDefault("decision.min_monthly_income", DefaultDecisionMinIncome)
	viper.SetDefault("decision.min_age", DefaultDecisionMinAge)
	viper.SetDefault("decision.max_age", DefaultDecisionMaxAge)

	viper.SetDefault("notify.topic_arn", "")
	viper.SetDefault("notify.region", "")

	viper.SetDefault("dispatch.max_attempts", DefaultDispatchMaxAttempts)
	viper.SetDefault("dispatch.send_timeout", DefaultDispatchSendTimeout)

	viper.SetDefault("flow.inactivity_threshold", DefaultInactivityThreshold)

	// Cron expressions include a seconds field.
	viper.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	viper.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultSQLMaintenanceSchedule)
	viper.SetDefault("scheduler.tasks.inactivity_nudge.enabled", true)
	viper.SetDefault("scheduler.tasks.inactivity_nudge.schedule", DefaultInactivityNudgeSchedule)
}
