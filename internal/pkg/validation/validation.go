package validation

import (
	"regexp"
	"time"
)

// Pickup dates are calendar days (YYYY-MM-DD), pickup times are 24h clock minutes (HH:MM).
var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Units: short lowercase words such as "kg", "l", "unit", "crate".
var unitRe = regexp.MustCompile(`^[a-z][a-z_]{0,19}$`)

func IsValidPickupDate(date string) bool {
	if !dateRe.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func IsValidPickupTime(t string) bool {
	return timeRe.MatchString(t)
}

func IsValidUnit(unit string) bool {
	return unitRe.MatchString(unit)
}
