package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// DepartureRepository implements departure.DepartureRepository.
type DepartureRepository struct {
	s *Store
}

func (r *DepartureRepository) FindByID(_ context.Context, id uuid.UUID) (*departure.Departure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departures[id]
	if !ok {
		return nil, apperror.NewDepartureNotFoundError(id.String())
	}
	return cloneDeparture(d), nil
}

func (r *DepartureRepository) ListByTrip(_ context.Context, tripID uuid.UUID) ([]*departure.Departure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*departure.Departure
	for _, d := range r.s.departures {
		if d.TripID() == tripID {
			out = append(out, cloneDeparture(d))
		}
	}
	sortBySchedule(out)
	return out, nil
}

func (r *DepartureRepository) ListUpcoming(_ context.Context, fromDate string, limit int) ([]*departure.Departure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*departure.Departure
	for _, d := range r.s.departures {
		if d.Date() >= fromDate {
			out = append(out, cloneDeparture(d))
		}
	}
	sortBySchedule(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DepartureRepository) Save(_ context.Context, d *departure.Departure) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departures[d.ID()]; ok {
		return apperror.NewConflictError("departure already exists")
	}
	r.s.departures[d.ID()] = cloneDeparture(d)
	return nil
}

func (r *DepartureRepository) ReserveSeats(_ context.Context, id uuid.UUID, count int) (int, error) {
	if err := departure.ValidateReservation(count); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departures[id]
	if !ok {
		return 0, apperror.NewDepartureNotFoundError(id.String())
	}
	return d.Reserve(count)
}

func (r *DepartureRepository) SetTotal(_ context.Context, id uuid.UUID, newTotal int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departures[id]
	if !ok {
		return apperror.NewDepartureNotFoundError(id.String())
	}
	if err := d.SetTotal(newTotal); err != nil {
		return err
	}
	d.IncrementVersion()
	return nil
}

func (r *DepartureRepository) UpdateStatus(_ context.Context, id uuid.UUID, status departure.AdminStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departures[id]
	if !ok {
		return apperror.NewDepartureNotFoundError(id.String())
	}
	if err := d.SetStatus(status); err != nil {
		return err
	}
	d.IncrementVersion()
	return nil
}

func (r *DepartureRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departures[id]
	if !ok {
		return apperror.NewDepartureNotFoundError(id.String())
	}
	if err := d.CanDelete(); err != nil {
		return err
	}
	delete(r.s.departures, id)
	return nil
}

func sortBySchedule(list []*departure.Departure) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date() != list[j].Date() {
			return list[i].Date() < list[j].Date()
		}
		return list[i].Time() < list[j].Time()
	})
}
