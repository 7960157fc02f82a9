// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api"
	"github.com/wcshoops/courtside/internal/api/auth"
	"github.com/wcshoops/courtside/internal/api/authz"
	"github.com/wcshoops/courtside/internal/api/messages"
	"github.com/wcshoops/courtside/internal/api/notifications"
	"github.com/wcshoops/courtside/internal/api/players"
	scheduleapi "github.com/wcshoops/courtside/internal/api/schedule"
	"github.com/wcshoops/courtside/internal/api/teams"
	"github.com/wcshoops/courtside/internal/api/verify"
	"github.com/wcshoops/courtside/internal/config"
	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/geo"
	"github.com/wcshoops/courtside/internal/geocode"
	"github.com/wcshoops/courtside/internal/ratelimit"
	"github.com/wcshoops/courtside/internal/scheduler"
	"github.com/wcshoops/courtside/internal/tokenstore"
)

// newServer wires the application and returns the HTTP server plus a
// cleanup function that stops background workers.
func newServer(cfg *config.Config, database *db.DB) (*http.Server, func(), error) {
	production := cfg.App.Environment == "production"

	sender, err := buildSender(cfg)
	if err != nil {
		return nil, nil, err
	}

	sessions := auth.NewSessionManager(database.Queries, production)
	limiter := ratelimit.New(ratelimit.DefaultConfig())
	resetTokens := tokenstore.New(auth.ResetTokenTTL)

	serviceArea := geo.ServiceAreaConfig{
		Center: geo.Coordinate{
			Latitude:  cfg.ServiceArea.CenterLat,
			Longitude: cfg.ServiceArea.CenterLon,
		},
		RadiusMiles: cfg.ServiceArea.RadiusMiles,
		Region:      cfg.ServiceArea.Region,
		RegionName:  cfg.ServiceArea.RegionName,
	}

	authH := auth.NewHandlers(database.Queries, sessions, limiter, resetTokens, sender, cfg.App.BaseURL, production)
	verifyH := verify.NewHandlers(serviceArea, geocode.New(cfg.Geocode.BaseURL))
	teamsH := teams.NewHandlers(database.Queries)
	playersH := players.NewHandlers(database.Queries, sender)
	messagesH := messages.NewHandlers(database.Queries, sender)
	notificationsH := notifications.NewHandlers(database.Queries)
	scheduleH := scheduleapi.NewHandlers(database, database.Queries)

	if err := scheduler.RegisterTokenSweepJob(map[string]*tokenstore.Store{
		"sessions":     sessions.Sessions(),
		"reset_tokens": resetTokens,
	}); err != nil {
		return nil, nil, fmt.Errorf("register token sweep job: %w", err)
	}
	if cfg.Email.Enabled {
		if err := scheduler.RegisterGameReminderJobs(database, sender); err != nil {
			return nil, nil, fmt.Errorf("register game reminder job: %w", err)
		}
	}

	mux := http.NewServeMux()
	registerRoutes(mux, routeHandlers{
		auth:          authH,
		verify:        verifyH,
		teams:         teamsH,
		players:       playersH,
		messages:      messagesH,
		notifications: notificationsH,
		schedule:      scheduleH,
	})

	handler := api.ChainMiddleware(
		mux,
		api.WithAuth(sessions),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	cleanup := func() {
		sessions.Close()
		limiter.Close()
		resetTokens.Close()
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, cleanup, nil
}

func buildSender(cfg *config.Config) (email.Sender, error) {
	if !cfg.Email.Enabled {
		log.Info().Msg("Email disabled, using log sender")
		return email.LogSender{}, nil
	}
	client, err := email.NewSESClient(
		cfg.Email.AccessKeyID,
		cfg.Email.SecretAccessKey,
		cfg.Email.Region,
		cfg.Email.Sender,
	)
	if err != nil {
		return nil, fmt.Errorf("create SES client: %w", err)
	}
	return client, nil
}

type routeHandlers struct {
	auth          *auth.Handlers
	verify        *verify.Handlers
	teams         *teams.Handlers
	players       *players.Handlers
	messages      *messages.Handlers
	notifications *notifications.Handlers
	schedule      *scheduleapi.Handlers
}

func registerRoutes(mux *http.ServeMux, h routeHandlers) {
	staff := api.RequireRole(authz.RoleAdmin, authz.RoleCoach)
	admin := api.RequireRole(authz.RoleAdmin)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", h.auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", h.auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", h.auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", h.auth.HandleMe)
	mux.HandleFunc("POST /api/v1/auth/reset/request", h.auth.HandleResetRequest)
	mux.HandleFunc("POST /api/v1/auth/reset/confirm", h.auth.HandleResetConfirm)

	// Service area verification, used pre-signup so unauthenticated
	mux.HandleFunc("POST /api/v1/verify/location", h.verify.HandleVerifyLocation)
	mux.HandleFunc("POST /api/v1/verify/zip", h.verify.HandleVerifyZip)

	// Teams and rosters
	mux.Handle("POST /api/v1/teams", admin(http.HandlerFunc(h.teams.HandleCreate)))
	mux.HandleFunc("GET /api/v1/teams", h.teams.HandleList)
	mux.HandleFunc("GET /api/v1/teams/{id}", h.teams.HandleGet)
	mux.Handle("DELETE /api/v1/teams/{id}", admin(http.HandlerFunc(h.teams.HandleDelete)))
	mux.HandleFunc("GET /api/v1/teams/{id}/roster", h.teams.HandleRoster)
	mux.Handle("POST /api/v1/teams/{id}/roster", staff(http.HandlerFunc(h.teams.HandleAssignPlayer)))
	mux.Handle("DELETE /api/v1/teams/{id}/roster/{playerID}", staff(http.HandlerFunc(h.teams.HandleRemovePlayer)))

	// Players and registration
	mux.HandleFunc("POST /api/v1/players", h.players.HandleCreate)
	mux.HandleFunc("GET /api/v1/players", h.players.HandleList)
	mux.HandleFunc("GET /api/v1/players/{id}", h.players.HandleGet)
	mux.HandleFunc("POST /api/v1/players/{id}/register", h.players.HandleRegister)

	// Team messages with mention fan-out
	mux.Handle("POST /api/v1/teams/{id}/messages", staff(http.HandlerFunc(h.messages.HandlePost)))
	mux.HandleFunc("GET /api/v1/teams/{id}/messages", h.messages.HandleListMessages)
	mux.Handle("POST /api/v1/messages/{id}/replies", staff(http.HandlerFunc(h.messages.HandleReply)))
	mux.HandleFunc("GET /api/v1/messages/{id}/replies", h.messages.HandleListReplies)

	// Mention notifications
	mux.HandleFunc("GET /api/v1/notifications", h.notifications.HandleList)
	mux.HandleFunc("GET /api/v1/notifications/unread", h.notifications.HandleUnreadCount)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", h.notifications.HandleMarkRead)

	// Season scheduling
	mux.Handle("POST /api/v1/schedule/generate", admin(http.HandlerFunc(h.schedule.HandleGenerate)))
	mux.HandleFunc("GET /api/v1/teams/{id}/games", h.schedule.HandleTeamGames)
	mux.Handle("POST /api/v1/games/{id}/score", staff(http.HandlerFunc(h.schedule.HandleRecordScore)))
}
