package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/testutil"
)

func createTestUser(t *testing.T, queries *db.Queries, email, role string) db.User {
	t.Helper()

	hash, err := HashPassword("test-password-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := queries.CreateUser(context.Background(), db.CreateUserParams{
		PublicID:     uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Phone:        sql.NullString{},
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionCreateAndResolve(t *testing.T) {
	database := testutil.NewTestDB(t)
	manager := NewSessionManager(database.Queries, false)
	defer manager.Close()

	user := createTestUser(t, database.Queries, "coach@example.com", "coach")

	w := httptest.NewRecorder()
	if err := manager.Create(w, user.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(t, w)
	if cookie.Value == "" {
		t.Fatal("session token is empty")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	resolved, err := manager.UserFromRequest(req)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved == nil {
		t.Fatal("expected a resolved user")
	}
	if resolved.ID != user.ID || resolved.Email != "coach@example.com" || resolved.Role != "coach" {
		t.Errorf("unexpected resolved user %+v", resolved)
	}
}

func TestSessionMissingCookie(t *testing.T) {
	database := testutil.NewTestDB(t)
	manager := NewSessionManager(database.Queries, false)
	defer manager.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resolved, err := manager.UserFromRequest(req)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved != nil {
		t.Errorf("expected nil user without a cookie, got %+v", resolved)
	}
}

func TestSessionUnknownToken(t *testing.T) {
	database := testutil.NewTestDB(t)
	manager := NewSessionManager(database.Queries, false)
	defer manager.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged-token"})

	resolved, err := manager.UserFromRequest(req)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved != nil {
		t.Errorf("expected nil user for unknown token, got %+v", resolved)
	}
}

func TestSessionClear(t *testing.T) {
	database := testutil.NewTestDB(t)
	manager := NewSessionManager(database.Queries, false)
	defer manager.Close()

	user := createTestUser(t, database.Queries, "parent@example.com", "parent")

	w := httptest.NewRecorder()
	if err := manager.Create(w, user.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(t, w)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	manager.Clear(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	resolved, err := manager.UserFromRequest(req)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved != nil {
		t.Error("expected session to be gone after clear")
	}
}
