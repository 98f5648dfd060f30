package departure

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

func newDeparture(t *testing.T, total int) *Departure {
	t.Helper()
	d, err := NewDeparture(uuid.New(), Schedule{Date: "2025-06-01", Time: "08:00", Stops: []string{"Helsingborg C", " ", "Malmö C"}}, total)
	require.NoError(t, err)
	return d
}

func TestNewDeparture(t *testing.T) {
	d := newDeparture(t, 40)
	assert.Equal(t, AdminStatusOpen, d.Status())
	assert.Equal(t, 40, d.SeatsLeft())
	assert.Equal(t, []string{"Helsingborg C", "Malmö C"}, d.Stops())

	_, err := NewDeparture(uuid.New(), Schedule{Date: "2025-06-01"}, -1)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = NewDeparture(uuid.Nil, Schedule{Date: "2025-06-01"}, 10)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = NewDeparture(uuid.New(), Schedule{Date: "2025-06-01", Time: "8"}, 10)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// time is optional
	_, err = NewDeparture(uuid.New(), Schedule{Date: "2025-06-01"}, 10)
	assert.NoError(t, err)
}

func TestReserve_NeverExceedsTotal(t *testing.T) {
	d := newDeparture(t, 5)

	left, err := d.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	_, err = d.Reserve(3)
	assert.ErrorIs(t, err, apperror.ErrCapacityExceeded)
	assert.Equal(t, 3, d.SeatsReserved())

	left, err = d.Reserve(2)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	assert.True(t, d.SoldOut())

	_, err = d.Reserve(0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSetTotal_RejectsBelowReserved(t *testing.T) {
	d := Reconstruct(uuid.New(), uuid.New(), "2025-06-01", "08:00", "", nil, 40, 40, AdminStatusOpen, 1, time.Time{}, time.Time{})

	err := d.SetTotal(30)
	assert.ErrorIs(t, err, apperror.ErrInvalidCapacity)
	assert.Equal(t, 40, d.SeatsTotal())

	require.NoError(t, d.SetTotal(45))
	assert.Equal(t, 5, d.SeatsLeft())
}

func TestSoldOut_IndependentOfLabel(t *testing.T) {
	d := newDeparture(t, 10)
	assert.False(t, d.SoldOut())

	require.NoError(t, d.SetStatus(AdminStatusCancelled))
	assert.True(t, d.SoldOut())

	full := Reconstruct(uuid.New(), uuid.New(), "2025-06-01", "", "", nil, 10, 10, AdminStatusOpen, 1, time.Time{}, time.Time{})
	assert.True(t, full.SoldOut())
	assert.Equal(t, AdminStatusOpen, full.Status())
}

func TestCanDelete(t *testing.T) {
	d := newDeparture(t, 10)
	assert.NoError(t, d.CanDelete())

	_, err := d.Reserve(1)
	require.NoError(t, err)
	assert.ErrorIs(t, d.CanDelete(), apperror.ErrDepartureInUse)
}

func TestSeatsLeft_Clamped(t *testing.T) {
	assert.Equal(t, 0, SeatsLeft(10, 12))
	assert.Equal(t, 4, SeatsLeft(10, 6))
}

func TestParseAdminStatus(t *testing.T) {
	s, err := ParseAdminStatus(" Sold_Out ")
	require.NoError(t, err)
	assert.Equal(t, AdminStatusSoldOut, s)

	_, err = ParseAdminStatus("closed")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
