// Package notify defines the mail tasks the services enqueue after a
// durable write. Delivery happens asynchronously and may be retried.
package notify

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names what a notification is about.
type Kind string

const (
	KindOfferReceived    Kind = "offer_received"
	KindOfferStaffNotice Kind = "offer_staff_notice"
	KindOfferSent        Kind = "offer_sent"
	KindOfferAccepted    Kind = "offer_accepted"
	KindOfferStaffAccept Kind = "offer_accepted_staff"
	KindOfferDeclined    Kind = "offer_declined"
	KindBookingConfirmed Kind = "booking_confirmed"
)

// Task is one mail to deliver.
type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTask builds a task with a fresh id. The recipient is trimmed.
func NewTask(kind Kind, to, subject, body, reference string) Task {
	return Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        strings.TrimSpace(to),
		Subject:   subject,
		Body:      body,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
}

// Deliverable returns true if the task has somewhere to go.
func (t Task) Deliverable() bool {
	return t.To != ""
}
