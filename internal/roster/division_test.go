package roster

import (
	"errors"
	"testing"
	"time"
)

var cutoff = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func TestAgeOn(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"birthday before cutoff", time.Date(2016, 8, 31, 0, 0, 0, 0, time.UTC), 10},
		{"birthday on cutoff", time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC), 10},
		{"birthday after cutoff", time.Date(2016, 9, 2, 0, 0, 0, 0, time.UTC), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeOn(tt.birth, cutoff); got != tt.want {
				t.Errorf("AgeOn = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlace(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		want  string
	}{
		{"seven year old in U8", time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), DivisionU8},
		{"eight year old in U10", time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), DivisionU10},
		{"nine year old in U10", time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), DivisionU10},
		{"eleven year old in U12", time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), DivisionU12},
		{"thirteen year old in U14", time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), DivisionU14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Place(tt.birth, cutoff)
			if err != nil {
				t.Fatalf("Place returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Place = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceBoundaries(t *testing.T) {
	// Turns 10 exactly on the cutoff: no longer "under 10".
	tenOnCutoff := time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC)
	got, err := Place(tenOnCutoff, cutoff)
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if got != DivisionU12 {
		t.Errorf("player turning 10 on cutoff should be U12, got %q", got)
	}
}

func TestPlaceTooOld(t *testing.T) {
	fourteen := time.Date(2012, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := Place(fourteen, cutoff); !errors.Is(err, ErrTooOld) {
		t.Errorf("fourteen year old: err = %v, want ErrTooOld", err)
	}
}

func TestPlaceFutureBirthDate(t *testing.T) {
	future := cutoff.AddDate(1, 0, 0)
	if _, err := Place(future, cutoff); err == nil {
		t.Error("birth date after cutoff should error")
	}
}

func TestSeasonCutoff(t *testing.T) {
	tests := []struct {
		season string
		want   time.Time
	}{
		{"2026-winter", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-spring", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"2031-fall", time.Date(2031, 9, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := SeasonCutoff(tt.season); !got.Equal(tt.want) {
			t.Errorf("SeasonCutoff(%q) = %s, want %s", tt.season, got, tt.want)
		}
	}

	fallback := SeasonCutoff("tryouts")
	if fallback.Month() != time.September || fallback.Day() != 1 {
		t.Errorf("unlabeled season cutoff = %s, want September 1", fallback)
	}
}

func TestPlaceSameDivisionAllSeason(t *testing.T) {
	// A birthday between a spring season's start and September 1 must not
	// change the player's division mid-season. Born April 2016: 9 at the
	// March start but 10 by the cutoff, so U12 everywhere.
	birth := time.Date(2016, 4, 10, 0, 0, 0, 0, time.UTC)
	got, err := Place(birth, SeasonCutoff("2026-spring"))
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if got != DivisionU12 {
		t.Errorf("Place = %q, want %q", got, DivisionU12)
	}
}

func TestHasSpace(t *testing.T) {
	if !HasSpace(9, 10) {
		t.Error("9 of 10 should have space")
	}
	if HasSpace(10, 10) {
		t.Error("full roster should not have space")
	}
}
