package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/testutil"
)

// recordingSender captures sends so tests can assert on recipients.
type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *recordingSender) Send(_ context.Context, recipient, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, recipient)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fixture struct {
	database *db.DB
	handlers *Handlers
	sender   *recordingSender
	author   db.User
	coach    db.User
	team     db.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	sender := &recordingSender{}

	author := createUser(t, database.Queries, "head.coach@example.com", "coach")
	coach := createUser(t, database.Queries, "assistant@example.com", "coach")
	createUser(t, database.Queries, "parent@example.com", "parent")

	team, err := database.Queries.CreateTeam(context.Background(), db.CreateTeamParams{
		Name:      "Salina Storm",
		Division:  "U10",
		Season:    "2026-winter",
		MaxRoster: 10,
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	return &fixture{
		database: database,
		handlers: NewHandlers(database.Queries, sender),
		sender:   sender,
		author:   author,
		coach:    coach,
		team:     team,
	}
}

func createUser(t *testing.T, queries *db.Queries, email, role string) db.User {
	t.Helper()
	user, err := queries.CreateUser(context.Background(), db.CreateUserParams{
		PublicID:     uuid.New().String(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Phone:        sql.NullString{},
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func postAs(t *testing.T, handler http.HandlerFunc, user db.User, path, pathID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.SetPathValue("id", pathID)
	ctx := authz.ContextWithUser(req.Context(), &authz.AuthUser{
		ID:       user.ID,
		PublicID: user.PublicID,
		Email:    user.Email,
		Role:     user.Role,
	})
	w := httptest.NewRecorder()
	handler(w, req.WithContext(ctx))
	return w
}

func notificationsFor(t *testing.T, queries *db.Queries, userID int64) []db.MentionNotification {
	t.Helper()
	items, err := queries.ListMentionNotifications(context.Background(), userID, 50)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return items
}

func waitForEmail(t *testing.T, sender *recordingSender, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sender.recipients()) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d emails, got %d", want, len(sender.recipients()))
}

func TestHandlePost_MentionFanOut(t *testing.T) {
	fx := newFixture(t)

	teamID := formatID(fx.team.ID)
	w := postAs(t, fx.handlers.HandlePost, fx.author, "/api/v1/teams/"+teamID+"/messages", teamID,
		`{"content": "Practice moved to 6pm, @assistant please update the families"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	items := notificationsFor(t, fx.database.Queries, fx.coach.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification for mentioned coach, got %d", len(items))
	}
	if items[0].MentionedByUserID != fx.author.ID {
		t.Errorf("notification attributes mention to user %d, want %d", items[0].MentionedByUserID, fx.author.ID)
	}
	if items[0].ReplyID.Valid {
		t.Error("top-level message notification must not reference a reply")
	}

	waitForEmail(t, fx.sender, 1)
	if got := fx.sender.recipients(); got[0] != "assistant@example.com" {
		t.Errorf("email sent to %q, want assistant@example.com", got[0])
	}
}

func TestHandlePost_NoSelfNotification(t *testing.T) {
	fx := newFixture(t)

	teamID := formatID(fx.team.ID)
	w := postAs(t, fx.handlers.HandlePost, fx.author, "/api/v1/teams/"+teamID+"/messages", teamID,
		`{"content": "Reminder from @head.coach about uniforms"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if items := notificationsFor(t, fx.database.Queries, fx.author.ID); len(items) != 0 {
		t.Errorf("author must not be notified of their own mention, got %d notifications", len(items))
	}
}

func TestHandlePost_ParentMentionIgnored(t *testing.T) {
	fx := newFixture(t)

	teamID := formatID(fx.team.ID)
	w := postAs(t, fx.handlers.HandlePost, fx.author, "/api/v1/teams/"+teamID+"/messages", teamID,
		`{"content": "Thanks @parent for bringing snacks"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	// Parents are outside the mention directory, so no notification lands.
	var total int64
	err := fx.database.QueryRow("SELECT COUNT(*) FROM mention_notifications").Scan(&total)
	if err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no notifications for a parent mention, got %d", total)
	}
}

func TestHandlePost_EmailFailureDoesNotFailSave(t *testing.T) {
	fx := newFixture(t)
	fx.sender.fail = true

	teamID := formatID(fx.team.ID)
	w := postAs(t, fx.handlers.HandlePost, fx.author, "/api/v1/teams/"+teamID+"/messages", teamID,
		`{"content": "@assistant the gym is double booked"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("message save must survive email failure, got %d", w.Code)
	}
	if items := notificationsFor(t, fx.database.Queries, fx.coach.ID); len(items) != 1 {
		t.Errorf("notification record should exist even when email fails, got %d", len(items))
	}
}

func TestFanOutMentions_DirectoryFailureIsSwallowed(t *testing.T) {
	fx := newFixture(t)

	// A closed database makes the directory lookup fail. Fan-out must
	// log and return, never panic or propagate.
	fx.database.Close()
	fx.handlers.fanOutMentions(context.Background(), 1, 0, "@assistant hello",
		&authz.AuthUser{ID: fx.author.ID, Email: fx.author.Email, Role: fx.author.Role})
}

func TestHandleReply_MentionReferencesReply(t *testing.T) {
	fx := newFixture(t)

	msg, err := fx.database.Queries.CreateMessage(context.Background(), db.CreateMessageParams{
		TeamID:   fx.team.ID,
		AuthorID: fx.author.ID,
		Content:  "Who can run the scrimmage Saturday?",
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	msgID := formatID(msg.ID)
	w := postAs(t, fx.handlers.HandleReply, fx.coach, "/api/v1/messages/"+msgID+"/replies", msgID,
		`{"content": "I can, @head.coach can you confirm the court?"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	items := notificationsFor(t, fx.database.Queries, fx.author.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(items))
	}
	if !items[0].ReplyID.Valid {
		t.Error("reply mention must reference the reply")
	}
	if items[0].MessageID != msg.ID {
		t.Errorf("notification message id %d, want %d", items[0].MessageID, msg.ID)
	}
}

func TestHandlePost_RejectsEmptyContent(t *testing.T) {
	fx := newFixture(t)

	teamID := formatID(fx.team.ID)
	w := postAs(t, fx.handlers.HandlePost, fx.author, "/api/v1/teams/"+teamID+"/messages", teamID,
		`{"content": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty content, got %d", w.Code)
	}
}

func TestHandleListMessages(t *testing.T) {
	fx := newFixture(t)

	for _, content := range []string{"first", "second", "third"} {
		_, err := fx.database.Queries.CreateMessage(context.Background(), db.CreateMessageParams{
			TeamID:   fx.team.ID,
			AuthorID: fx.author.ID,
			Content:  content,
		})
		if err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	teamID := formatID(fx.team.ID)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/teams/"+teamID+"/messages", nil)
	req.SetPathValue("id", teamID)
	w := httptest.NewRecorder()
	fx.handlers.HandleListMessages(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []messageResponse
	decodeData(t, w, &resp)
	if len(resp) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(resp))
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
