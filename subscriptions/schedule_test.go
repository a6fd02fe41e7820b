package subscriptions

import (
	"errors"
	"testing"
	"time"

	"mandi/apperr"
	"mandi/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestNextDeliveryDateWeekly(t *testing.T) {
	cursor := date(2026, 3, 2)
	sub := &models.Subscription{
		Frequency:        models.FrequencyWeekly,
		NextDeliveryDate: &cursor,
	}

	next, err := NextDeliveryDate(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := date(2026, 3, 9)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
	if sub.NextDeliveryDate == nil || !sub.NextDeliveryDate.Equal(want) {
		t.Fatalf("cursor not written back, got %v", sub.NextDeliveryDate)
	}
}

func TestNextDeliveryDateFrequencies(t *testing.T) {
	cursor := date(2026, 1, 31)
	cases := []struct {
		freq       models.Frequency
		customDays int
		want       time.Time
	}{
		{models.FrequencyWeekly, 0, date(2026, 2, 7)},
		{models.FrequencyBiweekly, 0, date(2026, 2, 14)},
		{models.FrequencyMonthly, 0, date(2026, 3, 3)}, // Jan 31 + 1 month normalizes past Feb
		{models.FrequencyQuarterly, 0, date(2026, 5, 1)},
		{models.FrequencyCustom, 10, date(2026, 2, 10)},
	}

	for _, tc := range cases {
		c := cursor
		sub := &models.Subscription{
			Frequency:           tc.freq,
			CustomFrequencyDays: tc.customDays,
			NextDeliveryDate:    &c,
		}
		next, err := NextDeliveryDate(sub)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.freq, err)
		}
		if !next.Equal(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.freq, tc.want, next)
		}
	}
}

func TestNextDeliveryDateSkipsAvoidDates(t *testing.T) {
	cursor := date(2026, 3, 2)
	sub := &models.Subscription{
		Frequency:        models.FrequencyWeekly,
		NextDeliveryDate: &cursor,
		AvoidDates: []time.Time{
			date(2026, 3, 9),
			date(2026, 3, 10),
		},
	}

	next, err := NextDeliveryDate(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := date(2026, 3, 11)
	if !next.Equal(want) {
		t.Fatalf("expected avoid dates to push delivery to %v, got %v", want, next)
	}
}

func TestNextDeliveryDateAvoidDateMatchesByCalendarDay(t *testing.T) {
	cursor := date(2026, 3, 2)
	// Avoid date at midnight, cadence lands mid-morning the same day.
	avoid := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		Frequency:        models.FrequencyWeekly,
		NextDeliveryDate: &cursor,
		AvoidDates:       []time.Time{avoid},
	}

	next, err := NextDeliveryDate(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sameCalendarDay(next, avoid) {
		t.Fatalf("delivery landed on an avoid date: %v", next)
	}
}

func TestNextDeliveryDateCustomWithoutDayCount(t *testing.T) {
	cursor := date(2026, 3, 2)
	sub := &models.Subscription{
		Frequency:        models.FrequencyCustom,
		NextDeliveryDate: &cursor,
	}

	if _, err := NextDeliveryDate(sub); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !sub.NextDeliveryDate.Equal(cursor) {
		t.Fatalf("cursor must not move on failure, got %v", sub.NextDeliveryDate)
	}
}

func TestNextDeliveryDateUnknownFrequency(t *testing.T) {
	cursor := date(2026, 3, 2)
	sub := &models.Subscription{
		Frequency:        models.Frequency("fortnightly-ish"),
		NextDeliveryDate: &cursor,
	}

	if _, err := NextDeliveryDate(sub); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNextDeliveryDateAvoidEverythingFails(t *testing.T) {
	cursor := date(2026, 3, 2)
	avoids := make([]time.Time, 0, maxAvoidDateHops+10)
	for i := 0; i < maxAvoidDateHops+10; i++ {
		avoids = append(avoids, cursor.AddDate(0, 0, 7+i))
	}
	sub := &models.Subscription{
		Frequency:        models.FrequencyWeekly,
		NextDeliveryDate: &cursor,
		AvoidDates:       avoids,
	}

	if _, err := NextDeliveryDate(sub); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error for unsatisfiable avoid set, got %v", err)
	}
}
