package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/ratelimit"
)

const (
	// ResetTokenTTL is how long a password-reset token stays valid.
	ResetTokenTTL    = 30 * time.Minute
	resetTokenBytes  = 32
	resetSendTimeout = 5 * time.Second
)

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type resetRequestBody struct {
	Email string `json:"email"`
}

// HandleResetRequest handles POST /api/v1/auth/reset/request. The response
// is identical whether or not the account exists, so the endpoint cannot be
// used to enumerate emails.
func (h *Handlers) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req resetRequestBody
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		apiutil.BadRequest(w, "Email is required")
		return
	}

	ip := ratelimit.GetClientIP(r, h.trustProxy)
	if result := h.limiter.CheckResetRequest(req.Email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded("reset_request", req.Email, ip, result.Reason)
		apiutil.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later")
		return
	}
	h.limiter.RecordResetRequest(req.Email, ip)

	accepted := map[string]string{"status": "accepted"}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error().Err(err).Msg("Failed to load user for reset request")
		}
		apiutil.WriteJSON(w, http.StatusAccepted, accepted)
		return
	}

	token, err := newResetToken()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate reset token")
		apiutil.WriteJSON(w, http.StatusAccepted, accepted)
		return
	}
	h.resetTokens.Set(token, strconv.FormatInt(user.ID, 10))

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(h.baseURL, "/"), token)
	notice := email.BuildPasswordReset(resetURL, ResetTokenTTL)

	// Delivery is detached from the request so a slow SES call never blocks
	// the response.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), resetSendTimeout)
		defer cancel()
		if err := h.sender.Send(sendCtx, user.Email, notice.Subject, notice.Body); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to send reset email")
		}
	}()

	logger.Info().Int64("user_id", user.ID).Msg("Password reset requested")
	apiutil.WriteJSON(w, http.StatusAccepted, accepted)
}

type resetConfirmBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleResetConfirm handles POST /api/v1/auth/reset/confirm. The token is
// single-use: it is deleted as soon as it is redeemed.
func (h *Handlers) HandleResetConfirm(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req resetConfirmBody
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		apiutil.BadRequest(w, "Token is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		apiutil.BadRequest(w, "Password must be at least 8 characters")
		return
	}

	value, ok := h.resetTokens.Get(req.Token)
	if !ok {
		apiutil.BadRequest(w, "Invalid or expired token")
		return
	}
	h.resetTokens.Delete(req.Token)

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logger.Error().Str("value", value).Msg("Malformed reset token value")
		apiutil.BadRequest(w, "Invalid or expired token")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		apiutil.InternalError(w, "Failed to reset password")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	if err := h.queries.UpdateUserPassword(ctx, hash, userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update password")
		apiutil.InternalError(w, "Failed to reset password")
		return
	}

	logger.Info().Int64("user_id", userID).Msg("Password reset completed")
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}
