package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/db"
	"github.com/wcshoops/courtside/internal/email"
	"github.com/wcshoops/courtside/internal/tokenstore"
)

// RegisterTokenSweepJob sweeps expired entries out of the given token
// stores every hour. The stores also sweep on their own ticker; this job
// exists to surface the counts in the logs.
func RegisterTokenSweepJob(stores map[string]*tokenstore.Store) error {
	jobName := "token_sweep"
	jobLogger := log.With().
		Str("component", "token_sweep_job").
		Str("job_name", jobName).
		Logger()

	_, err := AddJob(jobName, "0 * * * *", func() {
		for label, store := range stores {
			removed := store.Sweep()
			if removed > 0 {
				jobLogger.Info().Str("store", label).Int("removed", removed).Msg("Swept expired tokens")
			}
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add token sweep job: %w", err)
	}

	jobLogger.Info().Msg("Token sweep job registered")
	return nil
}

// RegisterGameReminderJobs sends a day-before reminder to the coaches of
// both teams in every game starting the next day. Runs each evening.
func RegisterGameReminderJobs(database *db.DB, sender email.Sender) error {
	if database == nil {
		return fmt.Errorf("game reminder job requires database")
	}

	jobName := "game_reminders"
	cronExpr := "0 18 * * *"
	jobLogger := log.With().
		Str("component", "game_reminders_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if sender == nil {
			jobLogger.Debug().Msg("Reminder job skipped: email sender not configured")
			return
		}

		tomorrow := time.Now().AddDate(0, 0, 1)
		from := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.Local)
		to := from.AddDate(0, 0, 1)

		games, err := database.Queries.ListGamesBetween(ctx, from, to)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to load games for reminder job")
			return
		}

		for _, game := range games {
			gameLogger := jobLogger.With().Int64("game_id", game.ID).Logger()
			if err := sendGameReminders(ctx, database.Queries, sender, game, &gameLogger); err != nil {
				gameLogger.Error().Err(err).Msg("Failed to send game reminders")
			}
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add game reminder job: %w", err)
	}

	jobLogger.Info().Msg("Game reminder job registered")
	return nil
}

// sendGameReminders emails the coach of each team in the game. Teams
// without an assigned coach are skipped.
func sendGameReminders(ctx context.Context, queries *db.Queries, sender email.Sender, game db.Game, logger *zerolog.Logger) error {
	home, err := queries.GetTeam(ctx, game.HomeTeamID)
	if err != nil {
		return fmt.Errorf("load home team: %w", err)
	}
	away, err := queries.GetTeam(ctx, game.AwayTeamID)
	if err != nil {
		return fmt.Errorf("load away team: %w", err)
	}

	pairs := []struct {
		team     db.Team
		opponent db.Team
	}{
		{home, away},
		{away, home},
	}

	for _, pair := range pairs {
		if !pair.team.CoachID.Valid {
			continue
		}
		coach, err := queries.GetUserByID(ctx, pair.team.CoachID.Int64)
		if err != nil {
			if err == sql.ErrNoRows {
				logger.Warn().Int64("coach_id", pair.team.CoachID.Int64).Msg("Coach not found for reminder")
				continue
			}
			return fmt.Errorf("load coach: %w", err)
		}

		notice := email.BuildGameReminder(email.GameReminderDetails{
			TeamName:     pair.team.Name,
			OpponentName: pair.opponent.Name,
			Court:        game.Court,
			StartsAt:     game.StartsAt,
		})
		if err := sender.Send(ctx, coach.Email, notice.Subject, notice.Body); err != nil {
			logger.Warn().Err(err).Str("recipient", coach.Email).Msg("Failed to send reminder email")
			continue
		}
		logger.Info().Str("team", pair.team.Name).Msg("Game reminder sent")
	}
	return nil
}
