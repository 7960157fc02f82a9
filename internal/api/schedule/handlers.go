// Package schedule serves season schedule generation and game results.
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/schedule"
)

const (
	queryTimeout    = 10 * time.Second
	defaultGameTime = 50 * time.Minute
)

type Handlers struct {
	database *db.DB
	queries  *db.Queries
}

func NewHandlers(database *db.DB, queries *db.Queries) *Handlers {
	return &Handlers{database: database, queries: queries}
}

type windowRequest struct {
	Weekday string `json:"weekday"`
	Opens   string `json:"opens"`
	Closes  string `json:"closes"`
}

type generateRequest struct {
	Season      string          `json:"season"`
	Division    string          `json:"division"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Courts      []string        `json:"courts"`
	Windows     []windowRequest `json:"windows"`
	GameMinutes int             `json:"game_minutes,omitempty"`
}

type gameResponse struct {
	ID         int64     `json:"id"`
	Season     string    `json:"season"`
	HomeTeamID int64     `json:"home_team_id"`
	AwayTeamID int64     `json:"away_team_id"`
	Court      string    `json:"court"`
	StartsAt   time.Time `json:"starts_at"`
	HomeScore  int64     `json:"home_score,omitempty"`
	AwayScore  int64     `json:"away_score,omitempty"`
	Final      bool      `json:"final"`
}

func toGameResponse(g db.Game) gameResponse {
	resp := gameResponse{
		ID:         g.ID,
		Season:     g.Season,
		HomeTeamID: g.HomeTeamID,
		AwayTeamID: g.AwayTeamID,
		Court:      g.Court,
		StartsAt:   g.StartsAt,
	}
	if g.HomeScore.Valid && g.AwayScore.Valid {
		resp.HomeScore = g.HomeScore.Int64
		resp.AwayScore = g.AwayScore.Int64
		resp.Final = true
	}
	return resp
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// HandleGenerate builds and persists a round-robin schedule for a
// division's teams. Admin only. All games are written in one transaction
// so a partial schedule never lands.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	var req generateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.Season == "" || req.Division == "" {
		apiutil.BadRequest(w, "Season and division are required")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		apiutil.BadRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		apiutil.BadRequest(w, "end_date must be YYYY-MM-DD")
		return
	}

	windows := make([]schedule.GameWindow, 0, len(req.Windows))
	for _, win := range req.Windows {
		weekday, ok := weekdays[strings.ToLower(win.Weekday)]
		if !ok {
			apiutil.BadRequest(w, "Unknown weekday "+win.Weekday)
			return
		}
		windows = append(windows, schedule.GameWindow{
			Weekday: weekday,
			Opens:   win.Opens,
			Closes:  win.Closes,
		})
	}

	gameDuration := defaultGameTime
	if req.GameMinutes > 0 {
		gameDuration = time.Duration(req.GameMinutes) * time.Minute
	}

	teams, err := h.queries.ListTeamsByDivision(ctx, req.Season, req.Division)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list division teams")
		apiutil.InternalError(w, "Failed to generate schedule")
		return
	}

	games, err := schedule.RoundRobin(req.Season, teams, startDate, endDate, req.Courts, windows, gameDuration)
	if err != nil {
		apiutil.BadRequest(w, err.Error())
		return
	}

	var created []db.Game
	err = h.database.RunInTx(ctx, func(tx *db.DB) error {
		for _, g := range games {
			row, err := tx.Queries.CreateGame(ctx, db.CreateGameParams{
				Season:     g.Season,
				HomeTeamID: g.HomeTeam.ID,
				AwayTeamID: g.AwayTeam.ID,
				Court:      g.Court,
				StartsAt:   g.StartsAt,
			})
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to persist schedule")
		apiutil.InternalError(w, "Failed to generate schedule")
		return
	}

	log.Ctx(r.Context()).Info().
		Str("season", req.Season).
		Str("division", req.Division).
		Int("games", len(created)).
		Msg("Schedule generated")

	resp := make([]gameResponse, 0, len(created))
	for _, g := range created {
		resp = append(resp, toGameResponse(g))
	}
	apiutil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleTeamGames lists a team's upcoming games.
func (h *Handlers) HandleTeamGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	teamID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	games, err := h.queries.ListTeamGames(ctx, teamID, time.Now())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list games")
		apiutil.InternalError(w, "Failed to list games")
		return
	}

	resp := make([]gameResponse, 0, len(games))
	for _, g := range games {
		resp = append(resp, toGameResponse(g))
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

type scoreRequest struct {
	HomeScore int64 `json:"home_score"`
	AwayScore int64 `json:"away_score"`
}

// HandleRecordScore records a final score for a game. Staff only.
func (h *Handlers) HandleRecordScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	gameID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid game id")
		return
	}

	var req scoreRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.HomeScore < 0 || req.AwayScore < 0 {
		apiutil.BadRequest(w, "Scores must be non-negative")
		return
	}

	game, err := h.queries.RecordGameScore(ctx, gameID, req.HomeScore, req.AwayScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Game not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to record score")
		apiutil.InternalError(w, "Failed to record score")
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("game_id", gameID).
		Int64("home_score", req.HomeScore).
		Int64("away_score", req.AwayScore).
		Msg("Score recorded")
	apiutil.WriteJSON(w, http.StatusOK, toGameResponse(game))
}
