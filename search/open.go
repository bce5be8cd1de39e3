package search

import (
	"strings"
	"time"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

// OpenChecker decides whether a pharmacy is open at a given moment.
// The upstream feed publishes hours as free-form strings, so implementations
// are expected to be tolerant and fall back to something safe when a record
// cannot be interpreted.
type OpenChecker interface {
	IsOpen(p *core.Pharmacy, at time.Time) bool
}

// hoursChecker interprets the feed's opening hours fields.
//
// Records whose hours cannot be parsed fall back to the turno flag: a turno
// pharmacy is legally required to be open, which is the safer answer for
// someone looking for medicine at night.
type hoursChecker struct{}

// NewHoursChecker returns the default OpenChecker.
func NewHoursChecker() OpenChecker {
	return hoursChecker{}
}

// spanishDays maps Go weekdays to the lowercase day names used by the feed.
var spanishDays = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miercoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sabado",
	time.Sunday:    "domingo",
}

func (hoursChecker) IsOpen(p *core.Pharmacy, at time.Time) bool {
	if p == nil {
		return false
	}

	open, err1 := parseClock(p.OpeningHour)
	close_, err2 := parseClock(p.ClosingHour)
	if err1 != nil || err2 != nil {
		return p.EsTurno
	}

	if day := normalizeDay(p.OperatingDay); day != "" && day != spanishDays[at.Weekday()] {
		return false
	}

	if close_ == open {
		// Feeds publish "00:00"-"00:00" for round-the-clock pharmacies.
		return true
	}

	minutes := at.Hour()*60 + at.Minute()
	if close_ < open {
		// Overnight schedule, e.g. 20:00 to 08:00
		return minutes >= open || minutes < close_
	}
	return minutes >= open && minutes < close_
}

// parseClock reads "HH:MM" or "HH:MM:SS" into minutes since midnight.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, &time.ParseError{Layout: "15:04:05", Value: s}
}

// normalizeDay lowercases and strips accents from the feed's day names
// ("miércoles" and "Miercoles" both appear).
func normalizeDay(s string) string {
	return core.Normalize(s)
}

// turnoOnlyChecker ignores hours entirely and reports the turno flag.
// Useful when the caller trusts the feed's turno roster more than its
// free-form schedule strings.
type turnoOnlyChecker struct{}

// NewTurnoOnlyChecker returns an OpenChecker driven purely by the turno flag.
func NewTurnoOnlyChecker() OpenChecker {
	return turnoOnlyChecker{}
}

func (turnoOnlyChecker) IsOpen(p *core.Pharmacy, _ time.Time) bool {
	return p != nil && p.EsTurno
}
