//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/cache"
	"github.com/helsingbuss/service-booking/internal/config"
	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/database"
	"github.com/helsingbuss/service-booking/internal/platform/kafka"
	"github.com/helsingbuss/service-booking/internal/repository"
)

// setupPostgres starts a PostgreSQL container, applies the migrations and
// returns a connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
		Timeout:  5 * time.Second,
	}
	logger := zap.NewNop()

	// Poll until the pool can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.URL(), "migrations", logger))
	return db
}

// setupKafka starts a Kafka container and pre-creates the service topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers,
		events.TopicOfferEvents,
		events.TopicBookingEvents,
		events.TopicDepartureEvents,
		events.TopicNotificationTasks,
	)
	return brokers
}

// serviceStack holds the application services wired against PostgreSQL.
type serviceStack struct {
	Offers     *application.OfferService
	Bookings   *application.BookingService
	Departures *application.DepartureService
	OfferRepo  *repository.GormOfferRepository
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, string, string, interface{}) error {
	return nil
}

type discardQueue struct{}

func (discardQueue) Enqueue(context.Context, notify.Task) error { return nil }

// setupServiceStack wires the services on the gorm repositories. Events and
// notifications go nowhere unless the caller supplies Kafka-backed ones.
func setupServiceStack(t *testing.T, db *gorm.DB, publisher application.EventPublisher, queue application.NotificationQueue) *serviceStack {
	t.Helper()
	logger := zap.NewNop()
	if publisher == nil {
		publisher = discardPublisher{}
	}
	if queue == nil {
		queue = discardQueue{}
	}

	offerRepo := repository.NewGormOfferRepository(db, 5*time.Second, true)
	bookingRepo := repository.NewGormBookingRepository(db, 5*time.Second)
	departureRepo := repository.NewGormDepartureRepository(db, 5*time.Second)

	offers := application.NewOfferService(
		offerRepo,
		identifier.NewGenerator(identifier.KindOffer, offerRepo),
		trip.NewVATInclusiveStrategy(trip.DefaultVATBasisPoints),
		publisher, queue, "trafik@helsingbuss.se", logger,
	)
	departures := application.NewDepartureService(
		departureRepo,
		cache.NewAvailabilityCache(nil, time.Second, logger),
		publisher, logger,
	)
	bookings := application.NewBookingService(
		bookingRepo, offers, departures,
		identifier.NewGenerator(identifier.KindBooking, bookingRepo),
		publisher, queue, logger,
	)
	return &serviceStack{
		Offers:     offers,
		Bookings:   bookings,
		Departures: departures,
		OfferRepo:  offerRepo,
	}
}

func sampleOffer() application.SubmitOfferRequest {
	return application.SubmitOfferRequest{
		Outbound:   trip.Leg{Origin: "Helsingborg", Destination: "Malmö", Date: "2030-06-01", Time: "08:00"},
		Passengers: 30,
		Customer:   trip.Customer{Name: "Anna Svensson", Email: "anna@example.se", Phone: "0701234567"},
	}
}

// storedStatus reads the raw status column, bypassing normalization.
func storedStatus(t *testing.T, db *gorm.DB, number string) string {
	t.Helper()
	var status string
	require.NoError(t, db.Raw("SELECT status FROM offers WHERE offer_number = ?", number).Scan(&status).Error)
	return status
}

// restrictOfferStatuses replaces the status column check so the store only
// accepts the given spellings.
func restrictOfferStatuses(t *testing.T, db *gorm.DB, allowed ...string) {
	t.Helper()
	list := ""
	for i, s := range allowed {
		if i > 0 {
			list += ", "
		}
		list += fmt.Sprintf("'%s'", s)
	}
	require.NoError(t, db.Exec("ALTER TABLE offers ADD CONSTRAINT offers_status_check CHECK (status IN ("+list+"))").Error)
}

// recordingDispatcher captures delivered mail.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To      string
	Subject string
}

func (d *recordingDispatcher) Send(_ context.Context, to, subject, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentMail{To: to, Subject: subject})
	return nil
}

func (d *recordingDispatcher) recipients() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.sent))
	for i, m := range d.sent {
		out[i] = m.To
	}
	return out
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
