// Package notifications serves the authenticated user's mention
// notifications.
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
)

const (
	queryTimeout = 5 * time.Second
	listLimit    = 25
)

type Handlers struct {
	queries *db.Queries
}

func NewHandlers(queries *db.Queries) *Handlers {
	return &Handlers{queries: queries}
}

type notificationResponse struct {
	ID                int64     `json:"id"`
	MessageID         int64     `json:"message_id"`
	ReplyID           int64     `json:"reply_id,omitempty"`
	MentionedByUserID int64     `json:"mentioned_by_user_id"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"created_at"`
}

func toNotificationResponse(n db.MentionNotification) notificationResponse {
	resp := notificationResponse{
		ID:                n.ID,
		MessageID:         n.MessageID,
		MentionedByUserID: n.MentionedByUserID,
		Read:              n.Read,
		CreatedAt:         n.CreatedAt,
	}
	if n.ReplyID.Valid {
		resp.ReplyID = n.ReplyID.Int64
	}
	return resp
}

// HandleList returns the authenticated user's recent mention
// notifications, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	items, err := h.queries.ListMentionNotifications(ctx, user.ID, listLimit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list notifications")
		apiutil.InternalError(w, "Failed to list notifications")
		return
	}

	resp := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, toNotificationResponse(n))
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

// HandleUnreadCount returns the badge count for the notification bell.
func (h *Handlers) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	count, err := h.queries.CountUnreadMentionNotifications(ctx, user.ID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to count notifications")
		apiutil.InternalError(w, "Failed to count notifications")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// HandleMarkRead marks one of the user's notifications as read. Scoped to
// the owner in SQL so a user cannot touch another user's notifications.
func (h *Handlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid notification id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	updated, err := h.queries.MarkMentionNotificationRead(ctx, id, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Notification not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to mark notification read")
		apiutil.InternalError(w, "Failed to update notification")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toNotificationResponse(updated))
}
