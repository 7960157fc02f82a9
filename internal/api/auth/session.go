package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/tokenstore"
)

const (
	sessionCookieName = "courtside_session"
	sessionTTL        = 8 * time.Hour
	sessionTokenBytes = 32
)

// SessionManager issues opaque session tokens backed by an in-process TTL
// store. Sessions are intentionally ephemeral; a restart logs everyone out.
type SessionManager struct {
	queries  *db.Queries
	sessions *tokenstore.Store
	secure   bool
}

// NewSessionManager creates a session manager. secure controls the cookie's
// Secure flag and should be false only in development.
func NewSessionManager(queries *db.Queries, secure bool) *SessionManager {
	return &SessionManager{
		queries:  queries,
		sessions: tokenstore.New(sessionTTL, tokenstore.WithSweepInterval(15*time.Minute)),
		secure:   secure,
	}
}

// Close stops the session store's sweeper.
func (m *SessionManager) Close() {
	m.sessions.Close()
}

// Sessions exposes the backing token store for maintenance jobs.
func (m *SessionManager) Sessions() *tokenstore.Store {
	return m.sessions
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create issues a session for userID and sets the session cookie.
func (m *SessionManager) Create(w http.ResponseWriter, userID int64) error {
	if w == nil {
		return errors.New("session requires response writer")
	}

	token, err := newSessionToken()
	if err != nil {
		return err
	}

	m.sessions.Set(token, strconv.FormatInt(userID, 10))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
		MaxAge:   int(sessionTTL.Seconds()),
	})

	return nil
}

// Clear deletes the request's session, if any, and expires the cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	if r != nil {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			m.sessions.Delete(cookie.Value)
		}
	}

	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest resolves the session cookie to an AuthUser. A missing or
// expired session yields (nil, nil); only infrastructure failures error.
func (m *SessionManager) UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, nil
	}

	value, ok := m.sessions.Get(cookie.Value)
	if !ok {
		return nil, nil
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		m.sessions.Delete(cookie.Value)
		return nil, nil
	}

	user, err := m.queries.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			m.sessions.Delete(cookie.Value)
			return nil, nil
		}
		return nil, err
	}

	return &authz.AuthUser{
		ID:       user.ID,
		PublicID: user.PublicID,
		Email:    user.Email,
		Role:     user.Role,
	}, nil
}
