package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/cache"
	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/repository/memory"
)

type publishedEvent struct {
	Topic     string
	EventType string
	Key       string
	Data      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, eventType, key string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, EventType: eventType, Key: key, Data: data})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []notify.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task notify.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) kinds() []notify.Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]notify.Kind, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = t.Kind
	}
	return out
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]cache.Snapshot
	hits        int
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[uuid.UUID]cache.Snapshot)}
}

func (c *mapCache) Get(_ context.Context, id uuid.UUID) (cache.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return s, ok
}

func (c *mapCache) Set(_ context.Context, s cache.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.DepartureID] = s
}

func (c *mapCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated++
}

var errQueueDown = errors.New("queue down")

type fixture struct {
	store      *memory.Store
	publisher  *recordingPublisher
	queue      *recordingQueue
	cache      *mapCache
	offers     *OfferService
	bookings   *BookingService
	departures *DepartureService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := identifier.WithClock(func() time.Time { return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC) })
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		publisher: &recordingPublisher{},
		queue:     &recordingQueue{},
		cache:     newMapCache(),
	}
	logger := zap.NewNop()

	f.offers = NewOfferService(
		store.Offers(),
		identifier.NewGenerator(identifier.KindOffer, store.Offers(), clock),
		trip.NewVATInclusiveStrategy(trip.DefaultVATBasisPoints),
		f.publisher, f.queue, "trafik@helsingbuss.se", logger,
	)
	f.departures = NewDepartureService(store.Departures(), f.cache, f.publisher, logger)
	f.bookings = NewBookingService(
		store.Bookings(), f.offers, f.departures,
		identifier.NewGenerator(identifier.KindBooking, store.Bookings(), clock),
		f.publisher, f.queue, logger,
	)
	f.dashboard = NewDashboardService(store.Offers(), store.Bookings(), store.Departures(), logger)
	return f
}

func helsingborgMalmo() SubmitOfferRequest {
	return SubmitOfferRequest{
		Outbound:   trip.Leg{Origin: "Helsingborg", Destination: "Malmö", Date: "2025-06-01", Time: "08:00"},
		Passengers: 30,
		Customer:   trip.Customer{Name: "Anna Svensson", Email: "anna@example.se", Phone: "0701234567"},
	}
}

// answered submits an offer and sends it with a price.
func (f *fixture) answered(t *testing.T) *OfferDTO {
	t.Helper()
	ctx := context.Background()
	o, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	sent, err := f.offers.SendOffer(ctx, o.OfferNumber, SendOfferRequest{TotalCents: 848000})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return sent
}
