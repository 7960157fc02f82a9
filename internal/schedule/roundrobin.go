// Package schedule generates round-robin season schedules for a division.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wcshoops/courtside/internal/db"
)

// ScheduledGame is one generated pairing slotted into a court and time.
type ScheduledGame struct {
	Season   string
	Round    int
	HomeTeam db.Team
	AwayTeam db.Team
	Court    string
	StartsAt time.Time
	EndsAt   time.Time
}

// GameWindow is a weekly window games may be scheduled in, e.g. Saturdays
// 09:00-17:00. Opens and Closes are "15:04" clock times.
type GameWindow struct {
	Weekday time.Weekday
	Opens   string
	Closes  string
}

type gameSlot struct {
	Start time.Time
	End   time.Time
	Court string
}

type dayHours struct {
	Opens  time.Time
	Closes time.Time
}

// RoundRobin pairs every team against every other team exactly once and
// assigns each pairing to the next free court slot between startDate and
// endDate.
func RoundRobin(season string, teams []db.Team, startDate, endDate time.Time, courts []string, windows []GameWindow, gameDuration time.Duration) ([]ScheduledGame, error) {
	if season == "" {
		return nil, errors.New("season is required")
	}
	if len(teams) < 2 {
		return nil, errors.New("at least two teams are required")
	}
	if len(courts) == 0 {
		return nil, errors.New("at least one court is required")
	}
	if gameDuration <= 0 {
		return nil, errors.New("game duration must be positive")
	}
	startDate = truncateDate(startDate)
	endDate = truncateDate(endDate)
	if endDate.Before(startDate) {
		return nil, errors.New("start date must be on or before end date")
	}

	pairs := buildRoundRobinPairs(teams)

	slots, err := buildGameSlots(startDate, endDate, courts, windows, gameDuration)
	if err != nil {
		return nil, err
	}
	if len(slots) < len(pairs) {
		return nil, fmt.Errorf("insufficient slots: need %d games but only %d available", len(pairs), len(slots))
	}

	games := make([]ScheduledGame, 0, len(pairs))
	for idx, pairing := range pairs {
		slot := slots[idx]
		games = append(games, ScheduledGame{
			Season:   season,
			Round:    pairing.Round,
			HomeTeam: pairing.HomeTeam,
			AwayTeam: pairing.AwayTeam,
			Court:    slot.Court,
			StartsAt: slot.Start,
			EndsAt:   slot.End,
		})
	}
	return games, nil
}

type roundPair struct {
	Round    int
	HomeTeam db.Team
	AwayTeam db.Team
}

// buildRoundRobinPairs uses the circle method: fix the first team, rotate
// the rest each round. An odd team count gets a bye slot via a nil entry.
func buildRoundRobinPairs(teams []db.Team) []roundPair {
	working := make([]*db.Team, 0, len(teams)+1)
	for i := range teams {
		working = append(working, &teams[i])
	}
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	rounds := len(working) - 1
	pairs := make([]roundPair, 0, rounds*len(working)/2)

	for round := 0; round < rounds; round++ {
		for i := 0; i < len(working)/2; i++ {
			left := working[i]
			right := working[len(working)-1-i]
			if left == nil || right == nil {
				continue
			}
			home := *left
			away := *right
			// Alternate who hosts the fixed team's game.
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			pairs = append(pairs, roundPair{
				Round:    round + 1,
				HomeTeam: home,
				AwayTeam: away,
			})
		}
		rotateTeams(working)
	}

	return pairs
}

func rotateTeams(teams []*db.Team) {
	if len(teams) <= 2 {
		return
	}
	last := teams[len(teams)-1]
	copy(teams[2:], teams[1:len(teams)-1])
	teams[1] = last
}

func buildGameSlots(startDate, endDate time.Time, courts []string, windows []GameWindow, gameDuration time.Duration) ([]gameSlot, error) {
	hoursByDay, err := buildHoursByDay(windows)
	if err != nil {
		return nil, err
	}
	if len(hoursByDay) == 0 {
		return nil, errors.New("game windows are required")
	}

	var slots []gameSlot
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		hours, ok := hoursByDay[date.Weekday()]
		if !ok {
			continue
		}
		dayOpen := time.Date(date.Year(), date.Month(), date.Day(), hours.Opens.Hour(), hours.Opens.Minute(), 0, 0, date.Location())
		dayClose := time.Date(date.Year(), date.Month(), date.Day(), hours.Closes.Hour(), hours.Closes.Minute(), 0, 0, date.Location())
		if !dayClose.After(dayOpen) {
			continue
		}
		for start := dayOpen; !start.Add(gameDuration).After(dayClose); start = start.Add(gameDuration) {
			end := start.Add(gameDuration)
			for _, court := range courts {
				slots = append(slots, gameSlot{Start: start, End: end, Court: court})
			}
		}
	}

	if len(slots) == 0 {
		return nil, errors.New("no available game slots in the season date range")
	}
	return slots, nil
}

func buildHoursByDay(windows []GameWindow) (map[time.Weekday]dayHours, error) {
	result := make(map[time.Weekday]dayHours)
	for _, window := range windows {
		opens, err := parseTimeOfDay(window.Opens)
		if err != nil {
			return nil, fmt.Errorf("invalid opens for %s: %w", window.Weekday, err)
		}
		closes, err := parseTimeOfDay(window.Closes)
		if err != nil {
			return nil, fmt.Errorf("invalid closes for %s: %w", window.Weekday, err)
		}
		result[window.Weekday] = dayHours{Opens: opens, Closes: closes}
	}
	return result, nil
}

func parseTimeOfDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("time is required")
	}
	return time.Parse("15:04", raw)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
