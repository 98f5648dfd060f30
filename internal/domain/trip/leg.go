// Package trip holds the value objects shared by offers and bookings: the
// legs of a journey, the customer contact and the quoted price.
package trip

import (
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date used on every boundary.
	DateLayout = "2006-01-02"
	// TimeLayout is the 24-hour clock time used on every boundary.
	TimeLayout = "15:04"
)

// Leg is one direction of a journey.
type Leg struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Stops       []string `json:"stops,omitempty"`
}

// Normalize trims whitespace and drops empty stops.
func (l Leg) Normalize() Leg {
	out := Leg{
		Origin:      strings.TrimSpace(l.Origin),
		Destination: strings.TrimSpace(l.Destination),
		Date:        strings.TrimSpace(l.Date),
		Time:        strings.TrimSpace(l.Time),
	}
	for _, s := range l.Stops {
		if s = strings.TrimSpace(s); s != "" {
			out.Stops = append(out.Stops, s)
		}
	}
	return out
}

// IsZero returns true if no field of the leg is set.
func (l Leg) IsZero() bool {
	return l.Origin == "" && l.Destination == "" && l.Date == "" && l.Time == "" && len(l.Stops) == 0
}

// MissingRequired lists the fields a bookable leg must carry.
func (l Leg) MissingRequired() []string {
	var missing []string
	if l.Date == "" {
		missing = append(missing, "date")
	}
	if l.Time == "" {
		missing = append(missing, "time")
	}
	if l.Origin == "" {
		missing = append(missing, "origin")
	}
	if l.Destination == "" {
		missing = append(missing, "destination")
	}
	return missing
}

// FormatProblems lists date/time fields that are set but malformed.
func (l Leg) FormatProblems() []string {
	var bad []string
	if l.Date != "" && !ValidDate(l.Date) {
		bad = append(bad, "date must be YYYY-MM-DD")
	}
	if l.Time != "" && !ValidTime(l.Time) {
		bad = append(bad, "time must be HH:MM")
	}
	return bad
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTime reports whether s is a 24-hour HH:MM time.
func ValidTime(s string) bool {
	if len(s) != len(TimeLayout) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}
