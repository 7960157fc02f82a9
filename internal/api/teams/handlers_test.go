package teams

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/testutil"
)

func newHandlers(t *testing.T) (*Handlers, *db.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	return NewHandlers(database.Queries), database
}

func doRequest(handler http.HandlerFunc, method, body string, pathValues map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	for name, value := range pathValues {
		req.SetPathValue(name, value)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
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

func createU10Player(t *testing.T, queries *db.Queries, firstName string) db.Player {
	t.Helper()
	player, err := queries.CreatePlayer(context.Background(), db.CreatePlayerParams{
		FirstName:  firstName,
		LastName:   "Test",
		BirthDate:  time.Date(2017, 3, 14, 0, 0, 0, 0, time.UTC),
		Grade:      4,
		GuardianID: createGuardian(t, queries, firstName),
	})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	return player
}

func createGuardian(t *testing.T, queries *db.Queries, tag string) int64 {
	t.Helper()
	user, err := queries.CreateUser(context.Background(), db.CreateUserParams{
		PublicID:     tag + "-public-id",
		Email:        tag + "@example.com",
		PasswordHash: "x",
		FirstName:    "Guardian",
		LastName:     tag,
		Phone:        sql.NullString{},
		Role:         "parent",
	})
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	return user.ID
}

func TestHandleCreateAndGet(t *testing.T) {
	h, _ := newHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Salina Storm", "division": "U10", "season": "2026-winter"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: %d: %s", w.Code, w.Body.String())
	}
	var created teamResponse
	decodeData(t, w, &created)
	if created.MaxRoster != 10 {
		t.Errorf("expected default max roster 10, got %d", created.MaxRoster)
	}

	w = doRequest(h.HandleGet, http.MethodGet, "", map[string]string{"id": strconv.FormatInt(created.ID, 10)})
	if w.Code != http.StatusOK {
		t.Fatalf("get team: %d", w.Code)
	}
	var fetched teamResponse
	decodeData(t, w, &fetched)
	if fetched.Name != "Salina Storm" || fetched.Division != "U10" {
		t.Errorf("unexpected team %+v", fetched)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	h, _ := newHandlers(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"division": "U10", "season": "2026-winter"}`},
		{"bad division", `{"name": "X", "division": "U99", "season": "2026-winter"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doRequest(h.HandleCreate, http.MethodPost, tc.body, nil); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestHandleCreate_DuplicateNameInSeason(t *testing.T) {
	h, _ := newHandlers(t)

	body := `{"name": "Salina Storm", "division": "U10", "season": "2026-winter"}`
	if w := doRequest(h.HandleCreate, http.MethodPost, body, nil); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	if w := doRequest(h.HandleCreate, http.MethodPost, body, nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate team name, got %d", w.Code)
	}
}

func TestHandleAssignPlayer(t *testing.T) {
	h, database := newHandlers(t)

	var team teamResponse
	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Storm", "division": "U10", "season": "2026-winter", "max_roster": 2}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: %d", w.Code)
	}
	decodeData(t, w, &team)
	teamID := strconv.FormatInt(team.ID, 10)

	player := createU10Player(t, database.Queries, "eligible")
	w = doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, player.ID), map[string]string{"id": teamID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("assign: %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(h.HandleRoster, http.MethodGet, "", map[string]string{"id": teamID})
	var roster []rosterEntry
	decodeData(t, w, &roster)
	if len(roster) != 1 || roster[0].ID != player.ID {
		t.Errorf("unexpected roster %+v", roster)
	}
}

func TestHandleAssignPlayer_SpringSeasonBirthday(t *testing.T) {
	h, database := newHandlers(t)

	var team teamResponse
	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Spring Comets", "division": "U12", "season": "2027-spring"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: %d", w.Code)
	}
	decodeData(t, w, &team)

	// Turns 10 after the spring season starts but before September 1.
	// The September cutoff places them in U12, same as registration does.
	player, err := database.Queries.CreatePlayer(context.Background(), db.CreatePlayerParams{
		FirstName:  "April",
		LastName:   "Test",
		BirthDate:  time.Date(2017, 4, 10, 0, 0, 0, 0, time.UTC),
		Grade:      4,
		GuardianID: createGuardian(t, database.Queries, "april"),
	})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	w = doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, player.ID),
		map[string]string{"id": strconv.FormatInt(team.ID, 10)})
	if w.Code != http.StatusNoContent {
		t.Fatalf("assign: %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleAssignPlayer_WrongDivision(t *testing.T) {
	h, database := newHandlers(t)

	var team teamResponse
	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Older Kids", "division": "U14", "season": "2026-winter"}`, nil)
	decodeData(t, w, &team)

	// A 2017 birth date places in U10, not U14.
	player := createU10Player(t, database.Queries, "tooyoung")
	w = doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, player.ID),
		map[string]string{"id": strconv.FormatInt(team.ID, 10)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for wrong division, got %d", w.Code)
	}
}

func TestHandleAssignPlayer_RosterFull(t *testing.T) {
	h, database := newHandlers(t)

	var team teamResponse
	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Tiny Roster", "division": "U10", "season": "2026-winter", "max_roster": 1}`, nil)
	decodeData(t, w, &team)
	teamID := strconv.FormatInt(team.ID, 10)

	first := createU10Player(t, database.Queries, "first")
	if w := doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, first.ID), map[string]string{"id": teamID}); w.Code != http.StatusNoContent {
		t.Fatalf("first assign: %d", w.Code)
	}

	second := createU10Player(t, database.Queries, "second")
	w = doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, second.ID), map[string]string{"id": teamID})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a full roster, got %d", w.Code)
	}
}

func TestHandleRemovePlayer(t *testing.T) {
	h, database := newHandlers(t)

	var team teamResponse
	w := doRequest(h.HandleCreate, http.MethodPost,
		`{"name": "Storm", "division": "U10", "season": "2026-winter"}`, nil)
	decodeData(t, w, &team)
	teamID := strconv.FormatInt(team.ID, 10)

	player := createU10Player(t, database.Queries, "removable")
	if w := doRequest(h.HandleAssignPlayer, http.MethodPost,
		fmt.Sprintf(`{"player_id": %d}`, player.ID), map[string]string{"id": teamID}); w.Code != http.StatusNoContent {
		t.Fatalf("assign: %d", w.Code)
	}

	w = doRequest(h.HandleRemovePlayer, http.MethodDelete, "",
		map[string]string{"id": teamID, "playerID": strconv.FormatInt(player.ID, 10)})
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove: %d", w.Code)
	}

	// Removing again is a 404: the player is no longer on the team.
	w = doRequest(h.HandleRemovePlayer, http.MethodDelete, "",
		map[string]string{"id": teamID, "playerID": strconv.FormatInt(player.ID, 10)})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for repeat removal, got %d", w.Code)
	}
}
