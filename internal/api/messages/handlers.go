// Package messages serves team message boards and runs the mention
// fan-out that notifies coaches and admins referenced with @handles.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/mentions"
)

const (
	queryTimeout = 5 * time.Second
	emailTimeout = 5 * time.Second

	maxMessageLength = 4000
	defaultPageSize  = 50
)

type Handlers struct {
	queries *db.Queries
	sender  email.Sender
}

func NewHandlers(queries *db.Queries, sender email.Sender) *Handlers {
	return &Handlers{queries: queries, sender: sender}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), queryTimeout)
}

type postRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type replyResponse struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HandlePost creates a top-level message on a team board. Staff only.
func (h *Handlers) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	teamID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	if _, err := h.queries.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Team not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get team")
		apiutil.InternalError(w, "Failed to post message")
		return
	}

	msg, err := h.queries.CreateMessage(ctx, db.CreateMessageParams{
		TeamID:   teamID,
		AuthorID: user.ID,
		Content:  content,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create message")
		apiutil.InternalError(w, "Failed to post message")
		return
	}

	// The message is saved. Mention fan-out is best effort from here on.
	h.fanOutMentions(r.Context(), msg.ID, 0, content, user)

	apiutil.WriteJSON(w, http.StatusCreated, messageResponse{
		ID:        msg.ID,
		TeamID:    msg.TeamID,
		AuthorID:  msg.AuthorID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
}

// HandleReply creates a reply under an existing message.
func (h *Handlers) HandleReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	messageID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid message id")
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	if _, err := h.queries.GetMessage(ctx, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Message not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get message")
		apiutil.InternalError(w, "Failed to post reply")
		return
	}

	reply, err := h.queries.CreateMessageReply(ctx, db.CreateMessageReplyParams{
		MessageID: messageID,
		AuthorID:  user.ID,
		Content:   content,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create reply")
		apiutil.InternalError(w, "Failed to post reply")
		return
	}

	h.fanOutMentions(r.Context(), messageID, reply.ID, content, user)

	apiutil.WriteJSON(w, http.StatusCreated, replyResponse{
		ID:        reply.ID,
		MessageID: reply.MessageID,
		AuthorID:  reply.AuthorID,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
	})
}

func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req postRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return "", false
	}
	if req.Content == "" {
		apiutil.BadRequest(w, "Content is required")
		return "", false
	}
	if len(req.Content) > maxMessageLength {
		apiutil.BadRequest(w, "Content is too long")
		return "", false
	}
	return req.Content, true
}

// fanOutMentions resolves @handles in content against the coach/admin
// directory and records plus emails a notification per mentioned user.
//
// Every failure here is logged and swallowed. The message save has
// already succeeded and a notification glitch must not turn it into an
// error for the author.
func (h *Handlers) fanOutMentions(ctx context.Context, messageID, replyID int64, content string, author *authz.AuthUser) {
	logger := log.Ctx(ctx).With().Int64("message_id", messageID).Logger()

	tokens := mentions.Extract(content)
	if len(tokens) == 0 {
		return
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries, err := h.queries.ListMentionDirectory(qctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Mention directory lookup failed, skipping fan-out")
		return
	}

	directory := make([]mentions.DirectoryUser, 0, len(entries))
	for _, e := range entries {
		directory = append(directory, mentions.DirectoryUser{
			ID:    strconv.FormatInt(e.ID, 10),
			Email: e.Email,
		})
	}

	resolved := mentions.Resolve(tokens, directory)
	replyRef := ""
	if replyID != 0 {
		replyRef = strconv.FormatInt(replyID, 10)
	}
	records := mentions.BuildNotifications(
		strconv.FormatInt(messageID, 10), replyRef, resolved, strconv.FormatInt(author.ID, 10))

	emailByID := make(map[string]string, len(entries))
	for _, u := range directory {
		emailByID[u.ID] = u.Email
	}

	for _, rec := range records {
		mentionedID, err := strconv.ParseInt(rec.MentionedUserID, 10, 64)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", rec.MentionedUserID).Msg("Bad mention user id")
			continue
		}

		params := db.CreateMentionNotificationParams{
			MessageID:         messageID,
			MentionedUserID:   mentionedID,
			MentionedByUserID: author.ID,
		}
		if replyID != 0 {
			params.ReplyID = sql.NullInt64{Int64: replyID, Valid: true}
		}
		if err := h.queries.CreateMentionNotification(qctx, params); err != nil {
			logger.Warn().Err(err).Int64("mentioned_user_id", mentionedID).
				Msg("Failed to record mention notification")
			continue
		}

		h.sendMentionEmail(logger, emailByID[rec.MentionedUserID], content, author)
	}
}

func (h *Handlers) sendMentionEmail(logger zerolog.Logger, recipient, content string, author *authz.AuthUser) {
	if recipient == "" {
		return
	}
	notice := email.BuildMentionNotice(email.MentionDetails{
		AuthorName: author.Email,
		Excerpt:    content,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := h.sender.Send(ctx, recipient, notice.Subject, notice.Body); err != nil {
			logger.Warn().Err(err).Msg("Failed to send mention email")
		}
	}()
}

// HandleListMessages returns a team's messages, newest first.
func (h *Handlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	teamID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	limit := int64(defaultPageSize)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	var offset int64
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	msgs, err := h.queries.ListTeamMessages(ctx, teamID, limit, offset)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list messages")
		apiutil.InternalError(w, "Failed to list messages")
		return
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			ID:        m.ID,
			TeamID:    m.TeamID,
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListReplies returns the replies under a message, oldest first.
func (h *Handlers) HandleListReplies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	messageID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid message id")
		return
	}

	replies, err := h.queries.ListMessageReplies(ctx, messageID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list replies")
		apiutil.InternalError(w, "Failed to list replies")
		return
	}

	resp := make([]replyResponse, 0, len(replies))
	for _, rep := range replies {
		resp = append(resp, replyResponse{
			ID:        rep.ID,
			MessageID: rep.MessageID,
			AuthorID:  rep.AuthorID,
			Content:   rep.Content,
			CreatedAt: rep.CreatedAt,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}
