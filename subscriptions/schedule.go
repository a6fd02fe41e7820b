package subscriptions

import (
	"time"

	"mandi/apperr"
	"mandi/models"
)

// maxAvoidDateHops bounds the avoid-date loop so a pathological avoid set
// (every day for a decade) fails instead of spinning forever.
const maxAvoidDateHops = 3650

// sameCalendarDay reports whether two instants fall on the same calendar day.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isAvoidDate(sub *models.Subscription, candidate time.Time) bool {
	for _, avoid := range sub.AvoidDates {
		if sameCalendarDay(candidate, avoid) {
			return true
		}
	}
	return false
}

// nextFromAnchor computes the next delivery date from an anchor without
// touching the aggregate. Weekly and biweekly are day offsets; monthly and
// quarterly advance by calendar months.
func nextFromAnchor(sub *models.Subscription, anchor time.Time) (time.Time, error) {
	var next time.Time
	switch sub.Frequency {
	case models.FrequencyWeekly:
		next = anchor.AddDate(0, 0, 7)
	case models.FrequencyBiweekly:
		next = anchor.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		next = anchor.AddDate(0, 1, 0)
	case models.FrequencyQuarterly:
		next = anchor.AddDate(0, 3, 0)
	case models.FrequencyCustom:
		if sub.CustomFrequencyDays <= 0 {
			return time.Time{}, apperr.Wrap(apperr.ErrConfiguration, "custom frequency requires a positive day count")
		}
		next = anchor.AddDate(0, 0, sub.CustomFrequencyDays)
	default:
		return time.Time{}, apperr.Wrap(apperr.ErrValidation, "unsupported frequency %q", sub.Frequency)
	}

	hops := 0
	for isAvoidDate(sub, next) {
		next = next.AddDate(0, 0, 1)
		hops++
		if hops > maxAvoidDateHops {
			return time.Time{}, apperr.Wrap(apperr.ErrConfiguration, "avoid dates leave no schedulable day within %d days", maxAvoidDateHops)
		}
	}
	return next, nil
}

// NextDeliveryDate advances the scheduling cursor. Anchor is the current
// cursor when set, otherwise now. The computed date is written back into
// the aggregate; persisting it is the caller's job.
func NextDeliveryDate(sub *models.Subscription) (time.Time, error) {
	anchor := time.Now()
	if sub.NextDeliveryDate != nil {
		anchor = *sub.NextDeliveryDate
	}
	next, err := nextFromAnchor(sub, anchor)
	if err != nil {
		return time.Time{}, err
	}
	sub.NextDeliveryDate = &next
	return next, nil
}
