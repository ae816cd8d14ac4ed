package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/him9495-payu/kaira/internal/database"
)

func newRedisStore(t *testing.T) database.ProfileStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return database.NewRedisProfileStore(client, nil)
}

func TestRedisProfileRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newRedisStore(t)

	got, err := store.GetUserProfile(ctx, "919876600001")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetUserProfile() on empty store = %+v, want nil", got)
	}

	profile := testProfile("919876600001")
	profile.Metadata = `{"schema_version":1}`
	if err := store.SaveUserProfile(ctx, profile); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}
	if profile.Version != 1 {
		t.Errorf("Version after first save = %d, want 1", profile.Version)
	}

	got, err = store.GetUserProfile(ctx, "919876600001")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUserProfile() = nil after save")
	}
	if got.Phone != "919876600001" || got.Language != "en" || got.Metadata != `{"schema_version":1}` {
		t.Errorf("GetUserProfile() = %+v, fields did not round-trip", got)
	}
	if got.Version != 1 {
		t.Errorf("stored Version = %d, want 1", got.Version)
	}

	got.Stage = "onboarding"
	if err := store.SaveUserProfile(ctx, got); err != nil {
		t.Fatalf("SaveUserProfile() update error = %v", err)
	}

	final, err := store.GetUserProfile(ctx, "919876600001")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if final.Stage != "onboarding" || final.Version != 2 {
		t.Errorf("GetUserProfile() after update = %+v, want stage onboarding at version 2", final)
	}
}

func TestRedisProfileStaleVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newRedisStore(t)

	fresh := testProfile("919876600002")
	if err := store.SaveUserProfile(ctx, fresh); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}

	first, err := store.GetUserProfile(ctx, "919876600002")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	second, err := store.GetUserProfile(ctx, "919876600002")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}

	first.Stage = "onboarding"
	if err := store.SaveUserProfile(ctx, first); err != nil {
		t.Fatalf("SaveUserProfile() first writer error = %v", err)
	}

	second.Stage = "offers"
	err = store.SaveUserProfile(ctx, second)
	if !errors.Is(err, database.ErrStaleProfile) {
		t.Fatalf("SaveUserProfile() second writer error = %v, want ErrStaleProfile", err)
	}

	duplicate := testProfile("919876600002")
	err = store.SaveUserProfile(ctx, duplicate)
	if !errors.Is(err, database.ErrStaleProfile) {
		t.Fatalf("SaveUserProfile() duplicate create error = %v, want ErrStaleProfile", err)
	}

	got, err := store.GetUserProfile(ctx, "919876600002")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if got.Stage != "onboarding" || got.Version != 2 {
		t.Errorf("GetUserProfile() = %+v, want the first writer's state at version 2", got)
	}
}

func TestRedisListInactiveProfiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newRedisStore(t)
	now := time.Now().UTC()

	stale := testProfile("919876600010")
	stale.LastActivity = now.Add(-3 * time.Hour)
	if err := store.SaveUserProfile(ctx, stale); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}

	idle := testProfile("919876600011")
	idle.LastActivity = now.Add(-1 * time.Hour)
	if err := store.SaveUserProfile(ctx, idle); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}

	active := testProfile("919876600012")
	active.LastActivity = now.Add(-5 * time.Minute)
	if err := store.SaveUserProfile(ctx, active); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}

	inactive, err := store.ListInactiveProfiles(ctx, now.Add(-30*time.Minute), 10)
	if err != nil {
		t.Fatalf("ListInactiveProfiles() error = %v", err)
	}
	if len(inactive) != 2 {
		t.Fatalf("ListInactiveProfiles() count = %d, want 2", len(inactive))
	}
	if inactive[0].Phone != "919876600010" || inactive[1].Phone != "919876600011" {
		t.Errorf("ListInactiveProfiles() order = [%s %s], want oldest first",
			inactive[0].Phone, inactive[1].Phone)
	}

	// A save refreshes the activity index.
	moved, err := store.GetUserProfile(ctx, "919876600010")
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	moved.LastActivity = now
	if err := store.SaveUserProfile(ctx, moved); err != nil {
		t.Fatalf("SaveUserProfile() error = %v", err)
	}

	inactive, err = store.ListInactiveProfiles(ctx, now.Add(-30*time.Minute), 10)
	if err != nil {
		t.Fatalf("ListInactiveProfiles() error = %v", err)
	}
	if len(inactive) != 1 || inactive[0].Phone != "919876600011" {
		t.Errorf("ListInactiveProfiles() after refresh = %+v, want only the idle profile", inactive)
	}
}
