package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bodylog/internal/db"
	"bodylog/internal/models"
)

type fakeEmailSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	links []string
}

func (f *fakeEmailSender) SendMagicLink(to, link string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, to)
	f.links = append(f.links, link)
	return nil
}

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	service := NewService(
		db.NewUserRepository(database),
		db.NewAuthTokenRepository(database),
		db.NewSessionRepository(database),
		&fakeEmailSender{},
		"http://localhost:8080",
	)

	return service, database
}

func TestIssueMagicLinkRejectsInvalidEmail(t *testing.T) {
	service, _ := newTestService(t)

	for _, email := range []string{"", "   ", "not-an-email", "missing-at.example.com"} {
		_, err := service.IssueMagicLink(context.Background(), email, nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("IssueMagicLink(%q) error = %v, want ErrInvalidInput", email, err)
		}
	}
}

func TestIssueMagicLinkCreatesStudentUser(t *testing.T) {
	service, database := newTestService(t)

	link, err := service.IssueMagicLink(context.Background(), "  New@Example.COM ", nil)
	if err != nil {
		t.Fatalf("IssueMagicLink() error = %v", err)
	}
	if link.Token == "" {
		t.Fatal("IssueMagicLink() returned empty token")
	}
	if got, want := time.Until(link.ExpiresAt), MagicLinkTTL; got > want || got < want-time.Minute {
		t.Errorf("expiry = %v from now, want about %v", got, want)
	}

	user, err := db.NewUserRepository(database).FindByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if user.Role != models.RoleStudent {
		t.Errorf("role = %q, want %q", user.Role, models.RoleStudent)
	}
}

func TestIssueMagicLinkSucceedsWhenEmailDeliveryFails(t *testing.T) {
	_, database := newTestService(t)

	service := NewService(
		db.NewUserRepository(database),
		db.NewAuthTokenRepository(database),
		db.NewSessionRepository(database),
		&fakeEmailSender{fail: true},
		"http://localhost:8080",
	)

	link, err := service.IssueMagicLink(context.Background(), "best@effort.example", nil)
	if err != nil {
		t.Fatalf("IssueMagicLink() error = %v, want nil despite delivery failure", err)
	}
	if link.Token == "" {
		t.Fatal("IssueMagicLink() returned empty token")
	}
}

func TestVerifyMagicLinkConsumesTokenExactlyOnce(t *testing.T) {
	service, _ := newTestService(t)

	link, err := service.IssueMagicLink(context.Background(), "once@example.com", nil)
	if err != nil {
		t.Fatalf("IssueMagicLink() error = %v", err)
	}

	session, err := service.VerifyMagicLink(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("VerifyMagicLink() error = %v", err)
	}
	if session.Token == "" {
		t.Fatal("VerifyMagicLink() returned empty session token")
	}
	if session.User.Email != "once@example.com" {
		t.Errorf("user email = %q, want %q", session.User.Email, "once@example.com")
	}

	_, err = service.VerifyMagicLink(context.Background(), link.Token)
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("second VerifyMagicLink() error = %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestVerifyMagicLinkRejectsExpiredToken(t *testing.T) {
	service, database := newTestService(t)

	if _, err := db.NewUserRepository(database).Create(context.Background(), "late@example.com", nil, models.RoleStudent); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := db.NewAuthTokenRepository(database).Create(
		context.Background(), "late@example.com", token, time.Now().Add(-time.Minute),
	); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = service.VerifyMagicLink(context.Background(), token)
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("VerifyMagicLink() error = %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestVerifyMagicLinkUnknownToken(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.VerifyMagicLink(context.Background(), "deadbeef")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("VerifyMagicLink() error = %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestConcurrentVerifySucceedsExactlyOnce(t *testing.T) {
	service, _ := newTestService(t)

	link, err := service.IssueMagicLink(context.Background(), "race@example.com", nil)
	if err != nil {
		t.Fatalf("IssueMagicLink() error = %v", err)
	}

	const attempts = 8
	results := make(chan error, attempts)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			_, err := service.VerifyMagicLink(context.Background(), link.Token)
			results <- err
		}()
	}
	start.Done()
	done.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidOrExpiredToken):
			rejections++
		default:
			t.Fatalf("VerifyMagicLink() unexpected error = %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if rejections != attempts-1 {
		t.Fatalf("rejections = %d, want %d", rejections, attempts-1)
	}
}

func TestAuthenticateReturnsNilForUnknownToken(t *testing.T) {
	service, _ := newTestService(t)

	user, err := service.Authenticate(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user != nil {
		t.Fatalf("Authenticate() user = %+v, want nil", user)
	}
}

func TestAuthenticateReturnsNilForExpiredSession(t *testing.T) {
	service, database := newTestService(t)

	created, err := db.NewUserRepository(database).Create(context.Background(), "expired@example.com", nil, models.RoleStudent)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := db.NewSessionRepository(database).Create(
		context.Background(), created.ID, token, time.Now().Add(-time.Hour),
	); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	user, err := service.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user != nil {
		t.Fatalf("Authenticate() user = %+v, want nil for expired session", user)
	}
}

func TestRequireRole(t *testing.T) {
	service, _ := newTestService(t)

	tests := []struct {
		role    models.Role
		allowed []models.Role
		wantOK  bool
	}{
		{models.RoleInstructor, []models.Role{models.RoleInstructor}, true},
		{models.RoleAdmin, []models.Role{models.RoleInstructor}, true},
		{models.RoleStudent, []models.Role{models.RoleInstructor}, false},
		{models.RoleStudent, []models.Role{models.RoleStudent}, true},
		{models.RoleInstructor, []models.Role{models.RoleAdmin}, false},
		{models.RoleAdmin, []models.Role{models.RoleAdmin}, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_wants_%v", tt.role, tt.allowed), func(t *testing.T) {
			err := service.RequireRole(&models.User{Role: tt.role}, tt.allowed...)
			if tt.wantOK && err != nil {
				t.Fatalf("RequireRole() error = %v, want nil", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrForbidden) {
				t.Fatalf("RequireRole() error = %v, want ErrForbidden", err)
			}
		})
	}

	if err := service.RequireRole(nil, models.RoleStudent); !errors.Is(err, ErrForbidden) {
		t.Fatalf("RequireRole(nil) error = %v, want ErrForbidden", err)
	}
}

func TestMagicLinkLifecycleEndToEnd(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	link, err := service.IssueMagicLink(ctx, "new@example.com", nil)
	if err != nil {
		t.Fatalf("IssueMagicLink() error = %v", err)
	}

	session, err := service.VerifyMagicLink(ctx, link.Token)
	if err != nil {
		t.Fatalf("VerifyMagicLink() error = %v", err)
	}
	if session.User.Role != models.RoleStudent {
		t.Errorf("role = %q, want %q", session.User.Role, models.RoleStudent)
	}

	user, err := service.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user == nil || user.ID != session.User.ID {
		t.Fatalf("Authenticate() user = %+v, want %q", user, session.User.ID)
	}

	if err := service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}
	// Revoking again is a no-op.
	if err := service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("second RevokeSession() error = %v", err)
	}

	user, err = service.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user != nil {
		t.Fatalf("Authenticate() after revoke = %+v, want nil", user)
	}
}
