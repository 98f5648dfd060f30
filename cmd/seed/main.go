// Command seed fills a development database with demo departures and offers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/config"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
	"github.com/helsingbuss/service-booking/internal/platform/database"
	"github.com/helsingbuss/service-booking/internal/platform/logger"
	"github.com/helsingbuss/service-booking/internal/repository"
)

type demoRoute struct {
	line  string
	from  string
	to    string
	stops []string
	seats int
}

var demoRoutes = []demoRoute{
	{line: "Helsingborg - Malmö", from: "Helsingborg C", to: "Malmö C", stops: []string{"Landskrona", "Lund C"}, seats: 49},
	{line: "Helsingborg - Ullared", from: "Helsingborg C", to: "Gekås Ullared", stops: []string{"Ängelholm", "Halmstad"}, seats: 57},
	{line: "Malmö - Köpenhamn", from: "Malmö C", to: "København H", seats: 30},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewNamed(cfg.AppEnv, "seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.StoreDriver != "postgres" {
		log.Fatal("seed only supports the postgres store", zap.String("store", cfg.StoreDriver))
	}

	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	departures := repository.NewGormDepartureRepository(db, cfg.DBConfig.Timeout)
	offers := repository.NewGormOfferRepository(db, cfg.DBConfig.Timeout, cfg.LegacyStatusFallback)

	created, err := seedDepartures(ctx, departures, time.Now().UTC())
	if err != nil {
		log.Fatal("failed to seed departures", zap.Error(err))
	}
	log.Info("departures seeded", zap.Int("count", created))

	created, err = seedOffers(ctx, offers, time.Now().UTC(), log)
	if err != nil {
		log.Fatal("failed to seed offers", zap.Error(err))
	}
	log.Info("offers seeded", zap.Int("count", created))
}

// seedDepartures adds a week of morning departures per demo route.
func seedDepartures(ctx context.Context, repo departure.DepartureRepository, now time.Time) (int, error) {
	created := 0
	for _, r := range demoRoutes {
		tripID := uuid.New()
		for day := 1; day <= 7; day++ {
			d, err := departure.NewDeparture(tripID, departure.Schedule{
				Date:      now.AddDate(0, 0, day).Format(trip.DateLayout),
				Time:      "08:00",
				LineLabel: r.line,
				Stops:     r.stops,
			}, r.seats)
			if err != nil {
				return created, err
			}
			if err := repo.Save(ctx, d); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// seedOffers adds one received offer per route. Numbers come from the
// random-suffix path, so a collision is skipped rather than retried.
func seedOffers(ctx context.Context, repo offer.OfferRepository, now time.Time, log *zap.Logger) (int, error) {
	created := 0
	for i, r := range demoRoutes {
		o, err := offer.NewOffer(offer.Draft{
			Outbound: trip.Leg{
				Origin:      r.from,
				Destination: r.to,
				Date:        now.AddDate(0, 0, 14+i).Format(trip.DateLayout),
				Time:        "09:30",
				Stops:       r.stops,
			},
			Passengers: 20 + 5*i,
			Customer: trip.Customer{
				Name:  fmt.Sprintf("Demo kund %d", i+1),
				Email: fmt.Sprintf("demo%d@example.se", i+1),
			},
			Notes: "demo data",
		})
		if err != nil {
			return created, err
		}
		o.AssignNumber(identifier.Pseudo(identifier.KindOffer, now))

		if err := repo.Save(ctx, o); err != nil {
			if errors.Is(err, apperror.ErrDuplicateIdentifier) {
				log.Warn("demo offer number taken, skipping", zap.String("offer_number", o.OfferNumber()))
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
