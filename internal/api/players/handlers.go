// Package players serves player management and season registration for
// guardians.
package players

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
	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/registration"
	"github.com/wcshoops/courtside/internal/roster"
)

const (
	queryTimeout = 5 * time.Second
	emailTimeout = 5 * time.Second

	// divisionCapacity caps approved registrations per division per
	// season. Overflow goes to the waitlist.
	divisionCapacity = 40
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

type createPlayerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Grade     int64  `json:"grade"`
}

type playerResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Grade     int64  `json:"grade"`
	TeamID    int64  `json:"team_id,omitempty"`
}

func toPlayerResponse(p db.Player) playerResponse {
	resp := playerResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: p.BirthDate.Format("2006-01-02"),
		Grade:     p.Grade,
	}
	if p.TeamID.Valid {
		resp.TeamID = p.TeamID.Int64
	}
	return resp
}

// HandleCreate adds a player under the authenticated guardian.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	var req createPlayerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		apiutil.BadRequest(w, "First and last name are required")
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		apiutil.BadRequest(w, "birth_date must be YYYY-MM-DD")
		return
	}

	player, err := h.queries.CreatePlayer(ctx, db.CreatePlayerParams{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		BirthDate:  birthDate,
		Grade:      req.Grade,
		GuardianID: user.ID,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create player")
		apiutil.InternalError(w, "Failed to create player")
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("player_id", player.ID).
		Int64("guardian_id", user.ID).
		Msg("Player created")
	apiutil.WriteJSON(w, http.StatusCreated, toPlayerResponse(player))
}

// HandleList returns the authenticated guardian's players.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return
	}

	players, err := h.queries.ListPlayersByGuardian(ctx, user.ID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list players")
		apiutil.InternalError(w, "Failed to list players")
		return
	}

	resp := make([]playerResponse, 0, len(players))
	for _, p := range players {
		resp = append(resp, toPlayerResponse(p))
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

// loadOwnPlayer fetches a player and verifies the requester is its
// guardian. Staff may act on any player.
func (h *Handlers) loadOwnPlayer(ctx context.Context, r *http.Request, w http.ResponseWriter) (db.Player, bool) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.Unauthorized(w, "Authentication required")
		return db.Player{}, false
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apiutil.BadRequest(w, "Invalid player id")
		return db.Player{}, false
	}

	player, err := h.queries.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.NotFound(w, "Player not found")
			return db.Player{}, false
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get player")
		apiutil.InternalError(w, "Failed to get player")
		return db.Player{}, false
	}

	if player.GuardianID != user.ID && !authz.IsStaff(user) {
		apiutil.Forbidden(w, "You do not manage this player")
		return db.Player{}, false
	}
	return player, true
}

// HandleGet returns one of the guardian's players.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	player, ok := h.loadOwnPlayer(ctx, r, w)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toPlayerResponse(player))
}

type registerRequest struct {
	Season      string `json:"season"`
	SeasonStart string `json:"season_start"`
}

type registrationResponse struct {
	ID       int64  `json:"id"`
	PlayerID int64  `json:"player_id"`
	Season   string `json:"season"`
	Division string `json:"division"`
	Status   string `json:"status"`
	FeeCents int64  `json:"fee_cents"`
}

// HandleRegister registers a player for a season. Division comes from the
// player's age on the season cutoff, the fee from the early-bird and
// sibling discount rules, and a full division waitlists instead of
// rejecting.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	player, ok := h.loadOwnPlayer(ctx, r, w)
	if !ok {
		return
	}
	user := authz.UserFromContext(r.Context())

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.Season == "" {
		apiutil.BadRequest(w, "Season is required")
		return
	}
	seasonStart, err := time.Parse("2006-01-02", req.SeasonStart)
	if err != nil {
		apiutil.BadRequest(w, "season_start must be YYYY-MM-DD")
		return
	}

	// Division comes from the September 1 cutoff, not the season start,
	// so registration and roster assignment always agree.
	division, err := roster.Place(player.BirthDate, roster.SeasonCutoff(req.Season))
	if err != nil {
		apiutil.BadRequest(w, "Player is too old for the league")
		return
	}

	siblings, err := h.queries.CountGuardianRegistrations(ctx, player.GuardianID, req.Season)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to count guardian registrations")
		apiutil.InternalError(w, "Failed to register player")
		return
	}
	feeCents := registration.Fee(time.Now(), seasonStart, siblings)

	approved, err := h.queries.CountActiveRegistrations(ctx, req.Season, division)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to count registrations")
		apiutil.InternalError(w, "Failed to register player")
		return
	}
	status := "approved"
	if approved >= divisionCapacity {
		status = "waitlisted"
	}

	reg, err := h.queries.CreateRegistration(ctx, db.CreateRegistrationParams{
		PlayerID: player.ID,
		Season:   req.Season,
		Division: division,
		Status:   status,
		FeeCents: feeCents,
	})
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			apiutil.Conflict(w, "Player is already registered for this season")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create registration")
		apiutil.InternalError(w, "Failed to register player")
		return
	}

	h.sendConfirmation(r, user.Email, player, reg)

	log.Ctx(r.Context()).Info().
		Int64("registration_id", reg.ID).
		Int64("player_id", player.ID).
		Str("division", division).
		Str("status", status).
		Msg("Player registered")
	apiutil.WriteJSON(w, http.StatusCreated, registrationResponse{
		ID:       reg.ID,
		PlayerID: reg.PlayerID,
		Season:   reg.Season,
		Division: reg.Division,
		Status:   reg.Status,
		FeeCents: reg.FeeCents,
	})
}

// sendConfirmation emails the guardian in the background. Registration
// already succeeded; a send failure only logs.
func (h *Handlers) sendConfirmation(r *http.Request, recipient string, player db.Player, reg db.Registration) {
	logger := log.Ctx(r.Context()).With().Int64("registration_id", reg.ID).Logger()
	notice := email.BuildRegistrationNotice(email.RegistrationDetails{
		PlayerName: player.FirstName + " " + player.LastName,
		Season:     reg.Season,
		Division:   reg.Division,
		FeeCents:   reg.FeeCents,
		Waitlisted: reg.Status == "waitlisted",
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := h.sender.Send(ctx, recipient, notice.Subject, notice.Body); err != nil {
			logger.Warn().Err(err).Msg("Failed to send registration confirmation")
		}
	}()
}
