package offer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// Draft is a trip request as submitted by a prospective customer.
type Draft struct {
	Outbound   trip.Leg
	Return     *trip.Leg
	Passengers int
	Customer   trip.Customer
	Notes      string
}

// Offer is the aggregate root for a price quote request.
type Offer struct {
	id          uuid.UUID
	offerNumber string
	outbound    trip.Leg
	returnLeg   *trip.Leg
	passengers  int
	customer    trip.Customer
	notes       string
	price       *trip.PriceBreakdown
	status      Status

	sentAt     *time.Time
	acceptedAt *time.Time
	declinedAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewOffer validates a draft and creates an offer with status=inkommen. The
// outbound leg needs the same fields a booking does, so an accepted offer can
// always be converted. The offer number is assigned by the caller once
// allocated.
func NewOffer(d Draft) (*Offer, error) {
	outbound := d.Outbound.Normalize()
	if missing := outbound.MissingRequired(); len(missing) > 0 {
		return nil, apperror.NewValidationError("missing required trip fields: " + strings.Join(missing, ", "))
	}
	if problems := outbound.FormatProblems(); len(problems) > 0 {
		return nil, apperror.NewValidationError("outbound " + strings.Join(problems, ", "))
	}

	var returnLeg *trip.Leg
	if d.Return != nil {
		r := d.Return.Normalize()
		if !r.IsZero() {
			if problems := r.FormatProblems(); len(problems) > 0 {
				return nil, apperror.NewValidationError("return " + strings.Join(problems, ", "))
			}
			returnLeg = &r
		}
	}

	if d.Passengers < 0 {
		return nil, apperror.NewValidationError("passenger count cannot be negative")
	}

	customer := d.Customer.Normalize()
	if !customer.Reachable() {
		return nil, apperror.NewValidationError("email or phone is required")
	}

	now := time.Now().UTC()
	return &Offer{
		id:         uuid.New(),
		outbound:   outbound,
		returnLeg:  returnLeg,
		passengers: d.Passengers,
		customer:   customer,
		notes:      strings.TrimSpace(d.Notes),
		status:     StatusReceived,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructOffer rebuilds an Offer from persistence data (no validation).
func ReconstructOffer(
	id uuid.UUID,
	offerNumber string,
	outbound trip.Leg,
	returnLeg *trip.Leg,
	passengers int,
	customer trip.Customer,
	notes string,
	price *trip.PriceBreakdown,
	status Status,
	sentAt *time.Time,
	acceptedAt *time.Time,
	declinedAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Offer {
	return &Offer{
		id:          id,
		offerNumber: offerNumber,
		outbound:    outbound,
		returnLeg:   returnLeg,
		passengers:  passengers,
		customer:    customer,
		notes:       notes,
		price:       price,
		status:      status,
		sentAt:      sentAt,
		acceptedAt:  acceptedAt,
		declinedAt:  declinedAt,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

// ID returns the offer's store id.
func (o *Offer) ID() uuid.UUID { return o.id }

// OfferNumber returns the human identifier, e.g. HB25007.
func (o *Offer) OfferNumber() string { return o.offerNumber }

// Outbound returns the outbound leg.
func (o *Offer) Outbound() trip.Leg { return o.outbound }

// Return returns the return leg, or nil for a one-way trip.
func (o *Offer) Return() *trip.Leg { return o.returnLeg }

// Passengers returns the requested passenger count.
func (o *Offer) Passengers() int { return o.passengers }

// Customer returns the contact details.
func (o *Offer) Customer() trip.Customer { return o.customer }

// Notes returns the free-text notes.
func (o *Offer) Notes() string { return o.notes }

// Price returns the quoted price, or nil before the offer is sent.
func (o *Offer) Price() *trip.PriceBreakdown { return o.price }

// Status returns the canonical status.
func (o *Offer) Status() Status { return o.status }

// SentAt returns when the price was sent.
func (o *Offer) SentAt() *time.Time { return o.sentAt }

// AcceptedAt returns when the offer was accepted.
func (o *Offer) AcceptedAt() *time.Time { return o.acceptedAt }

// DeclinedAt returns when the offer was declined or cancelled.
func (o *Offer) DeclinedAt() *time.Time { return o.declinedAt }

// Version returns the optimistic locking version.
func (o *Offer) Version() int64 { return o.version }

// CreatedAt returns the creation time.
func (o *Offer) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt returns the last modification time.
func (o *Offer) UpdatedAt() time.Time { return o.updatedAt }

// --- Behavior ---

// AssignNumber sets the human identifier before the offer is first saved.
func (o *Offer) AssignNumber(number string) {
	o.offerNumber = number
}

// Send attaches the quoted price and moves inkommen -> besvarad. It returns
// false without touching the offer when it is already besvarad.
func (o *Offer) Send(price trip.PriceBreakdown) (bool, error) {
	if o.status == StatusAnswered {
		return false, nil
	}
	if !o.status.CanTransitionTo(StatusAnswered) {
		return false, apperror.NewInvalidTransitionError(string(o.status), string(StatusAnswered))
	}
	if price.TotalCents <= 0 {
		return false, apperror.NewValidationError("total price must be positive")
	}
	if price.ExVATCents < 0 || price.VATCents < 0 {
		return false, apperror.NewValidationError("price components cannot be negative")
	}
	if price.Currency == "" {
		price.Currency = "SEK"
	}

	now := time.Now().UTC()
	o.price = &price
	o.status = StatusAnswered
	o.sentAt = &now
	o.updatedAt = now
	return true, nil
}

// Accept moves besvarad -> godkänd.
func (o *Offer) Accept() (bool, error) {
	changed, err := o.transition(StatusAccepted)
	if changed {
		at := o.updatedAt
		o.acceptedAt = &at
	}
	return changed, err
}

// Decline moves besvarad -> avböjd.
func (o *Offer) Decline() (bool, error) {
	changed, err := o.transition(StatusDeclined)
	if changed {
		at := o.updatedAt
		o.declinedAt = &at
	}
	return changed, err
}

// Cancel moves besvarad -> makulerad. Cancellation is stamped as a decline.
func (o *Offer) Cancel() (bool, error) {
	changed, err := o.transition(StatusCancelled)
	if changed {
		at := o.updatedAt
		o.declinedAt = &at
	}
	return changed, err
}

func (o *Offer) transition(target Status) (bool, error) {
	if o.status == target {
		return false, nil
	}
	if !o.status.CanTransitionTo(target) {
		return false, apperror.NewInvalidTransitionError(string(o.status), string(target))
	}
	o.status = target
	o.updatedAt = time.Now().UTC()
	return true, nil
}

// IncrementVersion bumps the version for optimistic locking.
func (o *Offer) IncrementVersion() {
	o.version++
	o.updatedAt = time.Now().UTC()
}
