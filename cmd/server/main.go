package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helsingbuss/service-booking/internal/application"
	"github.com/helsingbuss/service-booking/internal/cache"
	"github.com/helsingbuss/service-booking/internal/config"
	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
	"github.com/helsingbuss/service-booking/internal/handler"
	"github.com/helsingbuss/service-booking/internal/mail"
	"github.com/helsingbuss/service-booking/internal/platform/database"
	"github.com/helsingbuss/service-booking/internal/platform/health"
	"github.com/helsingbuss/service-booking/internal/platform/kafka"
	"github.com/helsingbuss/service-booking/internal/platform/logger"
	"github.com/helsingbuss/service-booking/internal/platform/middleware"
	"github.com/helsingbuss/service-booking/internal/repository"
	"github.com/helsingbuss/service-booking/internal/repository/memory"
)

const serviceName = "service-booking"

// stores groups the repositories of the selected driver.
type stores struct {
	offers     offer.OfferRepository
	bookings   bookingDomain.BookingRepository
	departures departure.DepartureRepository
	pinger     health.Pinger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}

	// Kafka carries domain events and the notification queue
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	publisher := events.NewKafkaPublisher(kafkaProducer)
	queue := events.NewKafkaNotificationQueue(kafkaProducer)

	// Redis is optional; without it availability is read from the store
	redisClient := cache.NewRedisClient(cfg.RedisConfig, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	availability := cache.NewAvailabilityCache(redisClient, cfg.RedisConfig.TTL, log)

	idOpts := []identifier.Option{
		identifier.WithWindow(cfg.IdentifierConfig.Window),
		identifier.WithFloor(cfg.IdentifierConfig.Floor),
		identifier.WithMaxAttempts(cfg.IdentifierConfig.MaxAttempts),
	}

	// Initialize application services
	offerService := application.NewOfferService(
		st.offers,
		identifier.NewGenerator(identifier.KindOffer, st.offers, idOpts...),
		trip.NewVATInclusiveStrategy(trip.DefaultVATBasisPoints),
		publisher,
		queue,
		cfg.MailConfig.StaffInbox,
		log,
	)
	departureService := application.NewDepartureService(st.departures, availability, publisher, log)
	bookingService := application.NewBookingService(
		st.bookings,
		offerService,
		departureService,
		identifier.NewGenerator(identifier.KindBooking, st.bookings, idOpts...),
		publisher,
		queue,
		log,
	)
	dashboardService := application.NewDashboardService(st.offers, st.bookings, st.departures, log)

	if cfg.MailConfig.StaffInbox == "" {
		log.Warn("STAFF_INBOX is empty; staff notices for new and accepted offers are not sent")
	}

	// Mail leaves through RabbitMQ or, in development, the log
	var dispatcher mail.Dispatcher
	if cfg.MailConfig.Mode == "amqp" {
		amqpDispatcher := mail.NewAMQPDispatcher(cfg.MailConfig.RabbitMQURL, cfg.MailConfig.Queue, log)
		defer func() { _ = amqpDispatcher.Close() }()
		dispatcher = amqpDispatcher
	} else {
		dispatcher = mail.NewLogDispatcher(log)
	}

	notificationConsumer := events.NewNotificationConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-notifications",
		dispatcher,
		log,
	)
	defer func() { _ = notificationConsumer.Close() }()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))

	// Register health check routes
	health.NewHandler(st.pinger, serviceName).RegisterRoutes(router)

	// Register routes
	handler.NewOfferHandler(offerService).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewDepartureHandler(departureService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminHandler(dashboardService, bookingService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting notification consumer")
		if err := notificationConsumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification consumer error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down service-booking...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", zap.Error(err))
	}
	log.Info("service-booking stopped")
}

// openStores connects the configured driver. For PostgreSQL it applies
// pending migrations and, when asked to, rewrites legacy status spellings.
func openStores(ctx context.Context, cfg *config.ServiceConfig, log *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			offers:     mem.Offers(),
			bookings:   mem.Bookings(),
			departures: mem.Departures(),
			pinger:     mem,
		}, nil
	}

	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", log); err != nil {
		return nil, err
	}

	timeout := cfg.DBConfig.Timeout
	offers := repository.NewGormOfferRepository(db, timeout, cfg.LegacyStatusFallback)
	if cfg.NormalizeStatusesOnStart {
		changed, err := offers.NormalizeLegacyStatuses(ctx)
		if err != nil {
			return nil, fmt.Errorf("normalize offer statuses: %w", err)
		}
		log.Info("offer statuses normalized", zap.Int64("rows", changed))
	}

	return &stores{
		offers:     offers,
		bookings:   repository.NewGormBookingRepository(db, timeout),
		departures: repository.NewGormDepartureRepository(db, timeout),
		pinger:     offers,
	}, nil
}
