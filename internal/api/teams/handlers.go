// Package teams serves team and roster management endpoints.
package teams

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/roster"
)

const queryTimeout = 5 * time.Second

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), queryTimeout)
}

type Handlers struct {
	queries *db.Queries
}

func NewHandlers(queries *db.Queries) *Handlers {
	return &Handlers{queries: queries}
}

type createTeamRequest struct {
	Name      string `json:"name"`
	Division  string `json:"division"`
	Season    string `json:"season"`
	CoachID   int64  `json:"coach_id,omitempty"`
	MaxRoster int64  `json:"max_roster,omitempty"`
}

type teamResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Division  string `json:"division"`
	Season    string `json:"season"`
	CoachID   int64  `json:"coach_id,omitempty"`
	MaxRoster int64  `json:"max_roster"`
}

func toTeamResponse(t db.Team) teamResponse {
	resp := teamResponse{
		ID:        t.ID,
		Name:      t.Name,
		Division:  t.Division,
		Season:    t.Season,
		MaxRoster: t.MaxRoster,
	}
	if t.CoachID.Valid {
		resp.CoachID = t.CoachID.Int64
	}
	return resp
}

func validDivision(division string) bool {
	switch division {
	case roster.DivisionU8, roster.DivisionU10, roster.DivisionU12, roster.DivisionU14:
		return true
	}
	return false
}

// HandleCreate creates a team. Admin only.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req createTeamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.Season == "" {
		apiutil.BadRequest(w, "Name and season are required")
		return
	}
	if !validDivision(req.Division) {
		apiutil.BadRequest(w, "Unknown division")
		return
	}
	if req.MaxRoster == 0 {
		req.MaxRoster = 10
	}

	params := db.CreateTeamParams{
		Name:      req.Name,
		Division:  req.Division,
		Season:    req.Season,
		MaxRoster: req.MaxRoster,
	}
	if req.CoachID != 0 {
		if _, err := h.queries.GetUserByID(ctx, req.CoachID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.BadRequest(w, "Coach not found")
				return
			}
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to look up coach")
			apiutil.InternalError(w, "Failed to create team")
			return
		}
		params.CoachID = sql.NullInt64{Int64: req.CoachID, Valid: true}
	}

	team, err := h.queries.CreateTeam(ctx, params)
	if err != nil {
		if isUniqueViolation(err) {
			apiutil.Conflict(w, "A team with that name already exists for the season")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create team")
		apiutil.InternalError(w, "Failed to create team")
		return
	}

	log.Ctx(r.Context()).Info().Int64("team_id", team.ID).Str("name", team.Name).Msg("Team created")
	apiutil.WriteJSON(w, http.StatusCreated, toTeamResponse(team))
}

// HandleGet returns a single team.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	team, err := h.queries.GetTeam(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Team not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get team")
		apiutil.InternalError(w, "Failed to get team")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toTeamResponse(team))
}

// HandleList returns teams for a season, optionally filtered by division.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	season := r.URL.Query().Get("season")
	if season == "" {
		apiutil.BadRequest(w, "Season is required")
		return
	}

	var (
		teams []db.Team
		err   error
	)
	if division := r.URL.Query().Get("division"); division != "" {
		teams, err = h.queries.ListTeamsByDivision(ctx, season, division)
	} else {
		teams, err = h.queries.ListTeamsBySeason(ctx, season)
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list teams")
		apiutil.InternalError(w, "Failed to list teams")
		return
	}

	resp := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, toTeamResponse(t))
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete removes a team. Admin only. Players are detached, not
// deleted, via the schema's ON DELETE SET NULL.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	if err := h.queries.DeleteTeam(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Team not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to delete team")
		apiutil.InternalError(w, "Failed to delete team")
		return
	}

	log.Ctx(r.Context()).Info().Int64("team_id", id).Msg("Team deleted")
	w.WriteHeader(http.StatusNoContent)
}

type rosterEntry struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Grade     int64  `json:"grade"`
}

// HandleRoster lists the players currently assigned to a team.
func (h *Handlers) HandleRoster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	if _, err := h.queries.GetTeam(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Team not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get team")
		apiutil.InternalError(w, "Failed to list roster")
		return
	}

	players, err := h.queries.ListTeamRoster(ctx, id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list roster")
		apiutil.InternalError(w, "Failed to list roster")
		return
	}

	resp := make([]rosterEntry, 0, len(players))
	for _, p := range players {
		resp = append(resp, rosterEntry{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Grade:     p.Grade,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

type assignRequest struct {
	PlayerID int64 `json:"player_id"`
}

// HandleAssignPlayer adds a player to a team roster, enforcing capacity
// and division eligibility. Staff only.
func (h *Handlers) HandleAssignPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	teamID, err := pathID(r, "id")
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}

	var req assignRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil || req.PlayerID == 0 {
		apiutil.BadRequest(w, "player_id is required")
		return
	}

	team, err := h.queries.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Team not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get team")
		apiutil.InternalError(w, "Failed to assign player")
		return
	}

	player, err := h.queries.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Player not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get player")
		apiutil.InternalError(w, "Failed to assign player")
		return
	}

	division, err := roster.Place(player.BirthDate, roster.SeasonCutoff(team.Season))
	if err != nil || division != team.Division {
		apiutil.BadRequest(w, "Player is not eligible for this division")
		return
	}

	count, err := h.queries.CountTeamRoster(ctx, teamID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to count roster")
		apiutil.InternalError(w, "Failed to assign player")
		return
	}
	if !roster.HasSpace(count, team.MaxRoster) {
		apiutil.Conflict(w, "Team roster is full")
		return
	}

	if err := h.queries.AssignPlayerToTeam(ctx, teamID, req.PlayerID); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to assign player")
		apiutil.InternalError(w, "Failed to assign player")
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("team_id", teamID).
		Int64("player_id", req.PlayerID).
		Msg("Player assigned to team")
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemovePlayer removes a player from a team roster. Staff only.
func (h *Handlers) HandleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	teamID, err := pathID(r, "id")
	if err != nil {
		apiutil.BadRequest(w, "Invalid team id")
		return
	}
	playerID, err := pathID(r, "playerID")
	if err != nil {
		apiutil.BadRequest(w, "Invalid player id")
		return
	}

	if err := h.queries.RemovePlayerFromTeam(ctx, playerID, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Player is not on this team")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to remove player")
		apiutil.InternalError(w, "Failed to remove player")
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("team_id", teamID).
		Int64("player_id", playerID).
		Msg("Player removed from team")
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
