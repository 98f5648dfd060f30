package offer

import (
	"fmt"
	"strings"
)

// Status is the canonical lifecycle state of an offer.
type Status string

const (
	StatusReceived  Status = "inkommen"
	StatusAnswered  Status = "besvarad"
	StatusAccepted  Status = "godkänd"
	StatusDeclined  Status = "avböjd"
	StatusCancelled Status = "makulerad"
)

// validTransitions defines the offer state machine.
var validTransitions = map[Status][]Status{
	StatusReceived:  {StatusAnswered},
	StatusAnswered:  {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:  {},
	StatusDeclined:  {},
	StatusCancelled: {},
}

// spellings lists, per canonical state, every value historically written for
// it. The canonical value comes first.
var spellings = map[Status][]string{
	StatusReceived:  {"inkommen", "ny", "new", "received", "pending"},
	StatusAnswered:  {"besvarad", "answered", "skickad", "sent", "offered"},
	StatusAccepted:  {"godkänd", "godkand", "accepted", "approved", "bekräftad", "bekraftad", "booked"},
	StatusDeclined:  {"avböjd", "avbojd", "declined", "rejected", "nekad"},
	StatusCancelled: {"makulerad", "cancelled", "canceled", "annullerad"},
}

var canonicalBySpelling = func() map[string]Status {
	m := make(map[string]Status)
	for status, values := range spellings {
		for _, v := range values {
			m[v] = status
		}
	}
	return m
}()

// AllStatuses returns the canonical states in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusReceived, StatusAnswered, StatusAccepted, StatusDeclined, StatusCancelled}
}

// IsValid returns true if s is a canonical status.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo returns true if the state machine allows s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves s.
func (s Status) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return !ok || len(allowed) == 0
}

// Spellings returns every stored value meaning s, canonical first.
func (s Status) Spellings() []string {
	out := make([]string, len(spellings[s]))
	copy(out, spellings[s])
	return out
}

func (s Status) String() string { return string(s) }

// NormalizeStatus maps any historical spelling to its canonical status.
func NormalizeStatus(raw string) (Status, bool) {
	s, ok := canonicalBySpelling[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// ParseStatus is NormalizeStatus returning an error for unknown values.
func ParseStatus(raw string) (Status, error) {
	s, ok := NormalizeStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown offer status: %q", raw)
	}
	return s, nil
}
