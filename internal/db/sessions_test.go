package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"bodylog/internal/models"
)

func TestFindUserByTokenHonorsExpiry(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	sessions := NewSessionRepository(database)
	ctx := context.Background()

	created, err := users.Create(ctx, "s@example.com", nil, models.RoleStudent)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := sessions.Create(ctx, created.ID, "live-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := sessions.Create(ctx, created.ID, "dead-token", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	user, err := sessions.FindUserByToken(ctx, "live-token")
	if err != nil {
		t.Fatalf("FindUserByToken() error = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user id = %q, want %q", user.ID, created.ID)
	}

	if _, err := sessions.FindUserByToken(ctx, "dead-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindUserByToken(expired) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	sessions := NewSessionRepository(database)
	ctx := context.Background()

	if err := sessions.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete() error = %v, want nil for absent session", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepository(database)
	sessions := NewSessionRepository(database)
	ctx := context.Background()

	created, err := users.Create(ctx, "cleanup@example.com", nil, models.RoleStudent)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := sessions.Create(ctx, created.ID, "fresh", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := sessions.Create(ctx, created.ID, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := sessions.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := sessions.FindUserByToken(ctx, "fresh"); err != nil {
		t.Errorf("FindUserByToken(fresh) error = %v, want nil", err)
	}
}

func TestConsumeAuthTokenIfUnused(t *testing.T) {
	database := openTestDB(t)
	tokens := NewAuthTokenRepository(database)
	ctx := context.Background()

	if _, err := tokens.Create(ctx, "x@example.com", "tok-1", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	consumed, err := tokens.ConsumeIfUnused(ctx, "tok-1")
	if err != nil {
		t.Fatalf("ConsumeIfUnused() error = %v", err)
	}
	if consumed.Email != "x@example.com" {
		t.Errorf("email = %q, want %q", consumed.Email, "x@example.com")
	}
	if !consumed.Used {
		t.Error("used = false, want true")
	}

	if _, err := tokens.ConsumeIfUnused(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second ConsumeIfUnused() error = %v, want ErrNotFound", err)
	}
}
