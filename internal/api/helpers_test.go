package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"bodylog/internal/config"
	"bodylog/internal/db"
	"bodylog/internal/models"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	database := openTestDB(t)

	cfg := &config.Config{}
	cfg.Server.Name = "test"
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.Environment = "development"

	server, err := NewServer(cfg, database, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	return server, database
}

func doRequest(t *testing.T, server *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
}

// signIn walks the development magic-link flow and returns a live session
// token plus the signed-in user.
func signIn(t *testing.T, server *Server, email string) (string, *models.User) {
	t.Helper()

	rr := doRequest(t, server, http.MethodPost, "/api/auth/magic-link", "", `{"email":"`+email+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("magic-link status = %d, body=%q", rr.Code, rr.Body.String())
	}

	var issued struct {
		DevToken string `json:"devToken"`
	}
	decodeBody(t, rr, &issued)
	if issued.DevToken == "" {
		t.Fatal("magic-link response missing devToken")
	}

	rr = doRequest(t, server, http.MethodPost, "/api/auth/verify", "", `{"token":"`+issued.DevToken+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body=%q", rr.Code, rr.Body.String())
	}

	var verified struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	decodeBody(t, rr, &verified)
	if verified.Token == "" || verified.User == nil {
		t.Fatalf("verify response incomplete: %q", rr.Body.String())
	}

	return verified.Token, verified.User
}

// promote rewrites the user's role directly; role changes have no API surface.
func promote(t *testing.T, database *db.DB, userID string, role models.Role) {
	t.Helper()

	_, err := database.ExecContext(context.Background(),
		`UPDATE users SET role = ? WHERE id = ?`, string(role), userID,
	)
	if err != nil {
		t.Fatalf("promoting user: %v", err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	return resp.Error.Code
}
