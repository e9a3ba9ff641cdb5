package attendance

import (
	"fmt"
	"time"
)

// OfficeHours are the boundaries used to classify punctuality. Open and Close
// are offsets from local midnight in Location.
type OfficeHours struct {
	Open     time.Duration
	Close    time.Duration
	Location *time.Location
}

// DefaultOfficeHours opens at 08:00:00 and closes at 16:59:00 UTC.
func DefaultOfficeHours() OfficeHours {
	return OfficeHours{
		Open:     8 * time.Hour,
		Close:    16*time.Hour + 59*time.Minute,
		Location: time.UTC,
	}
}

// ParseOfficeHours builds OfficeHours from "HH:MM[:SS]" strings and an IANA zone name.
func ParseOfficeHours(open, close, tz string) (OfficeHours, error) {
	h := DefaultOfficeHours()
	var err error
	if open != "" {
		if h.Open, err = parseClock(open); err != nil {
			return OfficeHours{}, fmt.Errorf("office open: %w", err)
		}
	}
	if close != "" {
		if h.Close, err = parseClock(close); err != nil {
			return OfficeHours{}, fmt.Errorf("office close: %w", err)
		}
	}
	if tz != "" {
		if h.Location, err = time.LoadLocation(tz); err != nil {
			return OfficeHours{}, fmt.Errorf("office timezone: %w", err)
		}
	}
	if h.Close <= h.Open {
		return OfficeHours{}, fmt.Errorf("office close %s must be after open %s", close, open)
	}
	return h, nil
}

func parseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q", s)
}

func (h OfficeHours) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// TimeOfDay is the offset of ts from midnight in the office location.
func (h OfficeHours) TimeOfDay(ts time.Time) time.Duration {
	t := ts.In(h.loc())
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// Day returns the calendar date of ts in the office location, as midnight UTC.
func (h OfficeHours) Day(ts time.Time) time.Time {
	y, m, d := ts.In(h.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SignInStatus is ON_TIME up to and including the open boundary, LATE after it.
func (h OfficeHours) SignInStatus(ts time.Time) Status {
	if h.TimeOfDay(ts) <= h.Open {
		return StatusOnTime
	}
	return StatusLate
}

// SignOutStatus is EARLY_SIGNOUT strictly before the close boundary.
func (h OfficeHours) SignOutStatus(ts time.Time) Status {
	if h.TimeOfDay(ts) < h.Close {
		return StatusEarlySignout
	}
	return StatusSignedOut
}
