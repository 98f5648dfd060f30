package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// SubmitOfferRequest holds a trip request from a prospective customer.
type SubmitOfferRequest struct {
	Outbound   trip.Leg      `json:"outbound"`
	Return     *trip.Leg     `json:"return"`
	Passengers int           `json:"passengers"`
	Customer   trip.Customer `json:"customer"`
	Notes      string        `json:"notes"`
}

// SendOfferRequest carries the quoted price. A bare total is split into
// ex-VAT and VAT by the pricing strategy.
type SendOfferRequest struct {
	TotalCents int64  `json:"total_cents"`
	ExVATCents int64  `json:"ex_vat_cents"`
	VATCents   int64  `json:"vat_cents"`
	Currency   string `json:"currency"`
}

// OfferService is the application service orchestrating offer use cases.
type OfferService struct {
	repo       offer.OfferRepository
	numbers    *identifier.Generator
	pricing    trip.PricingStrategy
	publisher  EventPublisher
	queue      NotificationQueue
	staffInbox string
	logger     *zap.Logger
}

// NewOfferService creates a new OfferService.
func NewOfferService(
	repo offer.OfferRepository,
	numbers *identifier.Generator,
	pricing trip.PricingStrategy,
	publisher EventPublisher,
	queue NotificationQueue,
	staffInbox string,
	logger *zap.Logger,
) *OfferService {
	return &OfferService{
		repo:       repo,
		numbers:    numbers,
		pricing:    pricing,
		publisher:  publisher,
		queue:      queue,
		staffInbox: strings.TrimSpace(staffInbox),
		logger:     logger,
	}
}

// SubmitOffer validates a trip request, allocates an offer number and stores
// the offer as inkommen.
func (s *OfferService) SubmitOffer(ctx context.Context, req SubmitOfferRequest) (*OfferDTO, error) {
	o, err := offer.NewOffer(offer.Draft{
		Outbound:   req.Outbound,
		Return:     req.Return,
		Passengers: req.Passengers,
		Customer:   req.Customer,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.numbers.Allocate(ctx, func(ctx context.Context, number string) error {
		o.AssignNumber(number)
		return s.repo.Save(ctx, o)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save offer: %w", err)
	}

	s.logger.Info("offer submitted", zap.String("offer_number", o.OfferNumber()))
	s.publishOfferEvent(ctx, o, events.OfferSubmitted)
	s.enqueue(ctx, offerReceivedTask(o))
	if s.staffInbox != "" {
		s.enqueue(ctx, offerStaffNoticeTask(o, s.staffInbox))
	}

	result := toOfferDTO(o)
	return &result, nil
}

// GetOffer retrieves an offer by id or offer number.
func (s *OfferService) GetOffer(ctx context.Context, ref string) (*OfferDTO, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	result := toOfferDTO(o)
	return &result, nil
}

// ListOffers returns offers newest first, optionally filtered by status. Any
// known spelling of a status is accepted as the filter.
func (s *OfferService) ListOffers(ctx context.Context, status string, page, limit int) (*PaginatedResult[OfferDTO], error) {
	var filter offer.ListFilter
	if status = strings.TrimSpace(status); status != "" {
		st, err := offer.ParseStatus(status)
		if err != nil {
			return nil, apperror.NewValidationError(err.Error())
		}
		filter.Status = &st
	}

	offers, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	dtos := make([]OfferDTO, len(offers))
	for i, o := range offers {
		dtos[i] = toOfferDTO(o)
	}
	result := NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// SendOffer attaches the price and moves the offer to besvarad.
func (s *OfferService) SendOffer(ctx context.Context, ref string, req SendOfferRequest) (*OfferDTO, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	price, err := trip.Complete(trip.PriceBreakdown{
		ExVATCents: req.ExVATCents,
		VATCents:   req.VATCents,
		TotalCents: req.TotalCents,
		Currency:   strings.ToUpper(strings.TrimSpace(req.Currency)),
	}, s.pricing)
	if err != nil && o.Status() != offer.StatusAnswered {
		return nil, apperror.NewValidationError(err.Error())
	}

	if _, err := s.transition(ctx, o, func() (bool, error) { return o.Send(price) }, events.OfferSent, func(o *offer.Offer) []notify.Task {
		return []notify.Task{offerSentTask(o)}
	}); err != nil {
		return nil, err
	}

	result := toOfferDTO(o)
	return &result, nil
}

// AcceptOffer moves a besvarad offer to godkänd.
func (s *OfferService) AcceptOffer(ctx context.Context, ref string) (*OfferDTO, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.accept(ctx, o); err != nil {
		return nil, err
	}
	result := toOfferDTO(o)
	return &result, nil
}

// DeclineOffer moves a besvarad offer to avböjd.
func (s *OfferService) DeclineOffer(ctx context.Context, ref string) (*OfferDTO, error) {
	return s.closeOffer(ctx, ref, (*offer.Offer).Decline, events.OfferDeclined)
}

// CancelOffer moves a besvarad offer to makulerad.
func (s *OfferService) CancelOffer(ctx context.Context, ref string) (*OfferDTO, error) {
	return s.closeOffer(ctx, ref, (*offer.Offer).Cancel, events.OfferCancelled)
}

// --- Helpers ---

func (s *OfferService) accept(ctx context.Context, o *offer.Offer) (bool, error) {
	return s.transition(ctx, o, o.Accept, events.OfferAccepted, func(o *offer.Offer) []notify.Task {
		tasks := []notify.Task{offerAcceptedTask(o)}
		if s.staffInbox != "" {
			tasks = append(tasks, offerStaffAcceptedTask(o, s.staffInbox))
		}
		return tasks
	})
}

func (s *OfferService) closeOffer(ctx context.Context, ref string, step func(*offer.Offer) (bool, error), eventType string) (*OfferDTO, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, o, func() (bool, error) { return step(o) }, eventType, func(o *offer.Offer) []notify.Task {
		return []notify.Task{offerDeclinedTask(o)}
	}); err != nil {
		return nil, err
	}
	result := toOfferDTO(o)
	return &result, nil
}

// transition runs one state machine step and persists it conditioned on the
// state it started from. A repeated step is a no-op: nothing is written,
// published or mailed. Side effects follow the durable write and never undo it.
func (s *OfferService) transition(
	ctx context.Context,
	o *offer.Offer,
	step func() (bool, error),
	eventType string,
	tasks func(*offer.Offer) []notify.Task,
) (bool, error) {
	from := o.Status()
	changed, err := step()
	if err != nil || !changed {
		return false, err
	}

	o.IncrementVersion()
	if err := s.repo.Update(ctx, o, from); err != nil {
		return false, fmt.Errorf("failed to update offer %s: %w", o.OfferNumber(), err)
	}

	s.logger.Info("offer status changed",
		zap.String("offer_number", o.OfferNumber()),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status())),
	)
	s.publishOfferEvent(ctx, o, eventType)
	for _, t := range tasks(o) {
		s.enqueue(ctx, t)
	}
	return true, nil
}

// resolve accepts either a store id or an offer number.
func (s *OfferService) resolve(ctx context.Context, ref string) (*offer.Offer, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.FindByID(ctx, id)
	}
	if number := strings.ToUpper(ref); identifier.IsKind(identifier.KindOffer, number) {
		return s.repo.FindByNumber(ctx, number)
	}
	return nil, apperror.NewOfferNotFoundError(ref)
}

func (s *OfferService) publishOfferEvent(ctx context.Context, o *offer.Offer, eventType string) {
	evt := events.OfferEvent{
		OfferID:     o.ID(),
		OfferNumber: o.OfferNumber(),
		Status:      string(o.Status()),
		Origin:      o.Outbound().Origin,
		Destination: o.Outbound().Destination,
		Date:        o.Outbound().Date,
		Passengers:  o.Passengers(),
		OccurredAt:  time.Now().UTC(),
	}
	if p := o.Price(); p != nil {
		total := p.TotalCents
		evt.TotalCents = &total
	}
	publishEvent(ctx, s.publisher, s.logger, events.TopicOfferEvents, eventType, o.ID().String(), evt)
}

func (s *OfferService) enqueue(ctx context.Context, task notify.Task) {
	enqueueTask(ctx, s.queue, s.logger, task)
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, topic, eventType, key string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, topic, eventType, key, data); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func enqueueTask(ctx context.Context, queue NotificationQueue, logger *zap.Logger, task notify.Task) {
	if queue == nil {
		return
	}
	if !task.Deliverable() {
		logger.Debug("skipping notification without recipient",
			zap.String("kind", string(task.Kind)),
			zap.String("reference", task.Reference),
		)
		return
	}
	if err := queue.Enqueue(ctx, task); err != nil {
		logger.Error("failed to enqueue notification",
			zap.String("kind", string(task.Kind)),
			zap.String("reference", task.Reference),
			zap.Error(err),
		)
	}
}
