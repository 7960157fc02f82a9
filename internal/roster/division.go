// Package roster implements division placement and roster capacity rules.
package roster

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Divisions in ascending age order. Placement uses the player's age on the
// season cutoff date, the standard youth basketball convention.
const (
	DivisionU8  = "U8"
	DivisionU10 = "U10"
	DivisionU12 = "U12"
	DivisionU14 = "U14"
)

var ErrTooOld = errors.New("player is too old for the oldest division")

// AgeOn returns the player's age in whole years on the given date.
func AgeOn(birthDate, on time.Time) int {
	age := on.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(age, 0, 0)
	if anniversary.After(on) {
		age--
	}
	return age
}

// Place returns the division for a player based on age at the season
// cutoff. A player is eligible for a division while strictly younger than
// its number on the cutoff date.
func Place(birthDate, cutoff time.Time) (string, error) {
	age := AgeOn(birthDate, cutoff)
	switch {
	case age < 0:
		return "", fmt.Errorf("birth date %s is after the season cutoff", birthDate.Format("2006-01-02"))
	case age < 8:
		return DivisionU8, nil
	case age < 10:
		return DivisionU10, nil
	case age < 12:
		return DivisionU12, nil
	case age < 14:
		return DivisionU14, nil
	default:
		return "", ErrTooOld
	}
}

// SeasonCutoff maps a season label like "2026-winter" to the division
// cutoff date, September 1 of the season year. Every placement decision
// for a season must use this date, whatever the season's start date is.
// Labels without a leading year fall back to the current year.
func SeasonCutoff(season string) time.Time {
	year := time.Now().Year()
	if len(season) >= 4 {
		if y, err := strconv.Atoi(season[:4]); err == nil {
			year = y
		}
	}
	return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
}

// HasSpace reports whether a team with the given roster count can accept
// another player.
func HasSpace(current, max int64) bool {
	return current < max
}
