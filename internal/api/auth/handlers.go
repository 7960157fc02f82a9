package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/ratelimit"
	"github.com/wcshoops/courtside/internal/registration"
	"github.com/wcshoops/courtside/internal/tokenstore"
)

const (
	authQueryTimeout  = 5 * time.Second
	minPasswordLength = 8
)

// Handlers serves the auth endpoints: register, login, logout, me, and the
// password-reset flow.
type Handlers struct {
	queries     *db.Queries
	sessions    *SessionManager
	limiter     *ratelimit.Limiter
	resetTokens *tokenstore.Store
	sender      email.Sender
	baseURL     string
	trustProxy  bool
}

func NewHandlers(queries *db.Queries, sessions *SessionManager, limiter *ratelimit.Limiter, resetTokens *tokenstore.Store, sender email.Sender, baseURL string, trustProxy bool) *Handlers {
	return &Handlers{
		queries:     queries,
		sessions:    sessions,
		limiter:     limiter,
		resetTokens: resetTokens,
		sender:      sender,
		baseURL:     baseURL,
		trustProxy:  trustProxy,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func newUserResponse(user db.User) userResponse {
	return userResponse{
		ID:        user.PublicID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
}

// HandleRegister handles POST /api/v1/auth/register. New accounts are
// always parents; coach and admin accounts are provisioned by an admin.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		apiutil.BadRequest(w, "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		apiutil.BadRequest(w, "Password must be at least 8 characters")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		apiutil.BadRequest(w, "First and last name are required")
		return
	}

	phone := sql.NullString{}
	if strings.TrimSpace(req.Phone) != "" {
		normalized, err := registration.NormalizePhone(req.Phone)
		if err != nil {
			apiutil.BadRequest(w, "Invalid phone number")
			return
		}
		phone = sql.NullString{String: normalized, Valid: true}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		apiutil.InternalError(w, "Failed to create account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		apiutil.Conflict(w, "An account with this email already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to check existing user")
		apiutil.InternalError(w, "Failed to create account")
		return
	}

	user, err := h.queries.CreateUser(ctx, db.CreateUserParams{
		PublicID:     uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        phone,
		Role:         authz.RoleParent,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create user")
		apiutil.InternalError(w, "Failed to create account")
		return
	}

	if err := h.sessions.Create(w, user.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		apiutil.InternalError(w, "Failed to create account")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("Account created")
	apiutil.WriteJSON(w, http.StatusCreated, newUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/v1/auth/login with lockout-based rate
// limiting on failed attempts.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ip := ratelimit.GetClientIP(r, h.trustProxy)

	if result := h.limiter.CheckLogin(req.Email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded("login", req.Email, ip, result.Reason)
		apiutil.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error().Err(err).Msg("Failed to load user for login")
			apiutil.InternalError(w, "Failed to sign in")
			return
		}
		// Record the miss so unknown emails can't be probed freely.
		h.limiter.RecordFailedLogin(req.Email, ip)
		apiutil.Unauthorized(w, "Invalid email or password")
		return
	}

	if !VerifyPassword(user.PasswordHash, req.Password) {
		if lockedOut := h.limiter.RecordFailedLogin(req.Email, ip); lockedOut {
			logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(req.Email)).Msg("Login lockout triggered")
		}
		apiutil.Unauthorized(w, "Invalid email or password")
		return
	}

	h.limiter.ResetLoginAttempts(req.Email)

	if err := h.sessions.Create(w, user.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		apiutil.InternalError(w, "Failed to sign in")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("Signed in")
	apiutil.WriteJSON(w, http.StatusOK, newUserResponse(user))
}

// HandleLogout handles POST /api/v1/auth/logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, r)
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// HandleMe handles GET /api/v1/auth/me.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Not signed in")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, userResponse{
		ID:    user.PublicID,
		Email: user.Email,
		Role:  user.Role,
	})
}
