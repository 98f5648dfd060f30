// Package identifier allocates the human readable, year scoped numbers printed
// on offers and bookings, e.g. HB25007 or BK25914.
package identifier

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"
)

// Kind selects the numbering sequence.
type Kind string

const (
	KindOffer   Kind = "offer"
	KindBooking Kind = "booking"
)

// MaxSequence is the largest sequence number that fits the three digit format.
const MaxSequence = 999

var formatPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}\d{3}$`)

// Prefix returns the two letter code for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindOffer:
		return "HB"
	case KindBooking:
		return "BK"
	}
	return ""
}

// IsValid returns true if the kind has a numbering sequence.
func (k Kind) IsValid() bool {
	return k.Prefix() != ""
}

// Valid reports whether s matches the identifier wire format.
func Valid(s string) bool {
	return formatPattern.MatchString(s)
}

// IsKind reports whether s is a well-formed identifier of the given kind.
func IsKind(kind Kind, s string) bool {
	return Valid(s) && s[:2] == kind.Prefix()
}

// YearPrefix returns prefix+yy for the calendar year of t.
func YearPrefix(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s%02d", kind.Prefix(), t.Year()%100)
}

// ParseSequence extracts the sequence number of s if it belongs to yearPrefix.
// Legacy or foreign formats are reported as not ok.
func ParseSequence(yearPrefix, s string) (int, bool) {
	if !Valid(s) || len(yearPrefix) != 4 || s[:4] != yearPrefix {
		return 0, false
	}
	seq, err := strconv.Atoi(s[4:])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// Format renders an identifier from its year prefix and sequence number.
func Format(yearPrefix string, seq int) (string, error) {
	if seq < 1 || seq > MaxSequence {
		return "", fmt.Errorf("sequence %d out of range", seq)
	}
	return fmt.Sprintf("%s%03d", yearPrefix, seq), nil
}

// Pseudo returns an identifier with a random sequence. It has the right shape
// but no uniqueness guarantee; use it only where collisions are harmless,
// such as demo data.
func Pseudo(kind Kind, now time.Time) string {
	seq := int(now.UnixNano()%MaxSequence) + 1
	if n, err := rand.Int(rand.Reader, big.NewInt(MaxSequence)); err == nil {
		seq = int(n.Int64()) + 1
	}
	return fmt.Sprintf("%s%03d", YearPrefix(kind, now), seq)
}
