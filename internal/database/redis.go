package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/him9495-payu/kaira/internal/config"
)

const (
	profileKeyPrefix   = "profile:"
	profileActivityKey = "profiles:last_activity"
)

// NewRedisClient dials Redis per the configuration and verifies the
// connection with a ping before returning the client.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		if closeErr := rdb.Close(); closeErr != nil {
			slog.Error("Error closing Redis client after failed ping", "error", closeErr)
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// redisProfileStore serves profiles from Redis instead of SQLite. Each
// profile lives at profile:<phone> as JSON; a sorted set indexes phones by
// last-activity time for the inactivity scan. Writes use WATCH so the
// version check and the overwrite are one atomic step.
type redisProfileStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisProfileStore creates a ProfileStore backed by an already connected
// Redis client.
func NewRedisProfileStore(client *redis.Client, logger *slog.Logger) ProfileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &redisProfileStore{
		client: client,
		logger: logger.With("component", "redis_store"),
	}
}

func profileKey(phone string) string {
	return profileKeyPrefix + phone
}

// GetUserProfile retrieves a profile by phone. Returns nil, nil if not found.
func (s *redisProfileStore) GetUserProfile(ctx context.Context, phone string) (*UserProfile, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	val, err := s.client.Get(ctx, profileKey(phone)).Result()

	switch {
	case errors.Is(err, redis.Nil):
		s.logger.DebugContext(ctx, "No user profile found", "phone", phone)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get user profile for phone %s: %w", phone, err)
	}

	var profile UserProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		s.logger.ErrorContext(ctx, "Error decoding stored user profile", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to decode user profile for phone %s: %w", phone, err)
	}

	s.logger.DebugContext(ctx, "Successfully retrieved user profile", "phone", phone, "version", profile.Version)
	return &profile, nil
}

// SaveUserProfile inserts or updates a profile guarded by its Version token.
// The stored version is read under WATCH and compared to the caller's; a
// mismatch, or any concurrent write between the read and the EXEC, yields
// ErrStaleProfile.
func (s *redisProfileStore) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
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

	key := profileKey(profile.Phone)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Result()

		switch {
		case errors.Is(err, redis.Nil):
			if profile.Version != 0 {
				return ErrStaleProfile
			}

		case err != nil:
			return fmt.Errorf("failed to read current profile: %w", err)

		default:
			var current UserProfile
			if err := json.Unmarshal([]byte(stored), &current); err != nil {
				return fmt.Errorf("failed to decode current profile: %w", err)
			}
			if current.Version != profile.Version {
				return ErrStaleProfile
			}
			profile.CreatedAt = current.CreatedAt
		}

		next := *profile
		next.Version = profile.Version + 1

		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, profileActivityKey, redis.Z{
				Score:  float64(next.LastActivity.Unix()),
				Member: next.Phone,
			})
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, ErrStaleProfile), errors.Is(err, redis.TxFailedErr):
		s.logger.WarnContext(ctx, "User profile version conflict",
			"phone", profile.Phone, "version", profile.Version)
		return fmt.Errorf("user profile %s at version %d: %w", profile.Phone, profile.Version, ErrStaleProfile)

	case err != nil:
		s.logger.ErrorContext(ctx, "Error saving user profile",
			"phone", profile.Phone, "version", profile.Version, "error", err)
		return fmt.Errorf("failed to save user profile for phone %s: %w", profile.Phone, err)
	}

	// Mirror the stored version so the in-memory copy stays current.
	profile.Version++

	s.logger.DebugContext(ctx, "User profile saved successfully",
		"phone", profile.Phone, "version", profile.Version)
	return nil
}

// ListInactiveProfiles retrieves up to 'limit' profiles whose last activity
// is older than 'cutoff', oldest first.
func (s *redisProfileStore) ListInactiveProfiles(ctx context.Context, cutoff time.Time, limit int) ([]*UserProfile, error) {
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

	phones, err := s.client.ZRangeByScore(ctx, profileActivityKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UTC().Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "Error scanning inactive profiles", "error", err)
		return nil, fmt.Errorf("failed to scan inactive profiles: %w", err)
	}

	if len(phones) == 0 {
		return nil, nil
	}

	keys := make([]string, len(phones))
	for i, phone := range phones {
		keys[i] = profileKey(phone)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching inactive profiles", "error", err)
		return nil, fmt.Errorf("failed to fetch inactive profiles: %w", err)
	}

	profiles := make([]*UserProfile, 0, len(values))
	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			// Index entry without a profile key, likely deleted out of band.
			s.logger.WarnContext(ctx, "Activity index entry has no stored profile", "phone", phones[i])
			continue
		}
		var profile UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			s.logger.WarnContext(ctx, "Skipping undecodable stored profile", "phone", phones[i], "error", err)
			continue
		}
		profiles = append(profiles, &profile)
	}

	s.logger.DebugContext(ctx, "Fetched inactive profiles successfully", "count", len(profiles))
	return profiles, nil
}
