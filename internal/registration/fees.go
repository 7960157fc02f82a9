// Package registration implements season registration pricing and input
// validation.
package registration

import "time"

const (
	baseFeeCents = 8500

	// Registering at least 30 days before the season opener earns the
	// early-bird rate.
	earlyBirdWindow      = 30 * 24 * time.Hour
	earlyBirdDiscountPct = 15
	siblingDiscountCents = 1000
	minimumFeeCents      = 2500
)

// Fee computes the registration fee in cents. siblingCount is the number of
// players the guardian has already registered this season.
func Fee(registeredAt, seasonStart time.Time, siblingCount int64) int64 {
	fee := int64(baseFeeCents)

	if seasonStart.Sub(registeredAt) >= earlyBirdWindow {
		fee -= fee * earlyBirdDiscountPct / 100
	}
	if siblingCount > 0 {
		fee -= siblingCount * siblingDiscountCents
	}

	if fee < minimumFeeCents {
		fee = minimumFeeCents
	}
	return fee
}
