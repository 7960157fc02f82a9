package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/wcshoops/courtside/internal/db"
)

func makeTeams(n int) []db.Team {
	teams := make([]db.Team, 0, n)
	for i := 0; i < n; i++ {
		teams = append(teams, db.Team{ID: int64(i + 1), Name: fmt.Sprintf("Team %d", i+1)})
	}
	return teams
}

var saturdayWindow = []GameWindow{
	{Weekday: time.Saturday, Opens: "09:00", Closes: "17:00"},
}

func TestRoundRobinEveryPairPlaysOnce(t *testing.T) {
	teams := makeTeams(4)
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC) // a Sunday
	end := start.AddDate(0, 2, 0)

	games, err := RoundRobin("2026-winter", teams, start, end, []string{"Court 1"}, saturdayWindow, time.Hour)
	if err != nil {
		t.Fatalf("RoundRobin returned error: %v", err)
	}

	// 4 teams: C(4,2) = 6 games.
	if len(games) != 6 {
		t.Fatalf("got %d games, want 6", len(games))
	}

	played := make(map[[2]int64]int)
	for _, g := range games {
		if g.HomeTeam.ID == g.AwayTeam.ID {
			t.Fatalf("team %d paired with itself", g.HomeTeam.ID)
		}
		a, b := g.HomeTeam.ID, g.AwayTeam.ID
		if a > b {
			a, b = b, a
		}
		played[[2]int64{a, b}]++
	}
	for pair, count := range played {
		if count != 1 {
			t.Errorf("pair %v played %d times, want 1", pair, count)
		}
	}
	if len(played) != 6 {
		t.Errorf("got %d distinct pairs, want 6", len(played))
	}
}

func TestRoundRobinOddTeamCount(t *testing.T) {
	teams := makeTeams(5)
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	games, err := RoundRobin("2026-winter", teams, start, end, []string{"Court 1", "Court 2"}, saturdayWindow, time.Hour)
	if err != nil {
		t.Fatalf("RoundRobin returned error: %v", err)
	}

	// 5 teams: C(5,2) = 10 games, each round has one bye.
	if len(games) != 10 {
		t.Fatalf("got %d games, want 10", len(games))
	}
}

func TestRoundRobinSlotsRespectWindows(t *testing.T) {
	teams := makeTeams(4)
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 2, 0)

	games, err := RoundRobin("2026-winter", teams, start, end, []string{"Court 1"}, saturdayWindow, time.Hour)
	if err != nil {
		t.Fatalf("RoundRobin returned error: %v", err)
	}

	for _, g := range games {
		if g.StartsAt.Weekday() != time.Saturday {
			t.Errorf("game scheduled on %s, want Saturday", g.StartsAt.Weekday())
		}
		if g.StartsAt.Hour() < 9 || g.EndsAt.Hour() > 17 {
			t.Errorf("game %v-%v outside the 09:00-17:00 window", g.StartsAt, g.EndsAt)
		}
		if g.EndsAt.Sub(g.StartsAt) != time.Hour {
			t.Errorf("game duration = %v, want 1h", g.EndsAt.Sub(g.StartsAt))
		}
	}
}

func TestRoundRobinInsufficientSlots(t *testing.T) {
	teams := makeTeams(8)
	// One Saturday with one court: 8 slots, but 28 games needed.
	start := time.Date(2026, 11, 7, 0, 0, 0, 0, time.UTC)

	_, err := RoundRobin("2026-winter", teams, start, start, []string{"Court 1"}, saturdayWindow, time.Hour)
	if err == nil {
		t.Fatal("expected insufficient slots error")
	}
}

func TestRoundRobinValidation(t *testing.T) {
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	if _, err := RoundRobin("", makeTeams(2), start, end, []string{"c"}, saturdayWindow, time.Hour); err == nil {
		t.Error("empty season should error")
	}
	if _, err := RoundRobin("s", makeTeams(1), start, end, []string{"c"}, saturdayWindow, time.Hour); err == nil {
		t.Error("single team should error")
	}
	if _, err := RoundRobin("s", makeTeams(2), start, end, nil, saturdayWindow, time.Hour); err == nil {
		t.Error("no courts should error")
	}
	if _, err := RoundRobin("s", makeTeams(2), end, start, []string{"c"}, saturdayWindow, time.Hour); err == nil {
		t.Error("end before start should error")
	}
	if _, err := RoundRobin("s", makeTeams(2), start, end, []string{"c"}, saturdayWindow, 0); err == nil {
		t.Error("zero duration should error")
	}
}
