package registration

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone validates a guardian phone number and returns it in E.164
// form. Numbers without a country code are treated as US.
func NormalizePhone(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
