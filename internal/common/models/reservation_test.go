package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

func TestGuests_ValueAndScan(t *testing.T) {
	staff := 4
	guests := Guests{{
		DisplayName: "Mia",
		Services: []model.GuestService{{
			ServiceItem:   model.ServiceItem{ID: 1, Name: "Cut", Price: decimal.RequireFromString("55.5"), DurationMinutes: 30},
			AssignedStaff: &staff,
		}},
		TotalPrice:         decimal.RequireFromString("55.5"),
		TotalEstimatedTime: 30,
	}}

	v, err := guests.Value()
	require.NoError(t, err)

	var got Guests
	require.NoError(t, got.Scan(v))
	require.Len(t, got, 1)
	assert.Equal(t, "Mia", got[0].DisplayName)
	assert.Equal(t, 4, *got[0].Services[0].AssignedStaff)
	assert.True(t, decimal.RequireFromString("55.5").Equal(got[0].TotalPrice))

	t.Run("文字列", func(t *testing.T) {
		var g Guests
		require.NoError(t, g.Scan(`[{"display_name":"Ben","services":[]}]`))
		assert.Equal(t, "Ben", g[0].DisplayName)
	})

	t.Run("NULL", func(t *testing.T) {
		g := Guests{{}}
		require.NoError(t, g.Scan(nil))
		assert.Nil(t, g)
	})

	t.Run("未対応の型", func(t *testing.T) {
		var g Guests
		assert.Error(t, g.Scan(42))
	})

	t.Run("nilは空配列", func(t *testing.T) {
		v, err := Guests(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("[]"), v)
	})
}

func TestReservation_RoundTrip(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	id := int64(12)
	customerID := int64(3)
	r := model.Reservation{
		ID:            &id,
		Customer:      model.Customer{ID: &customerID, Name: "Kai", Phone: "0412345678", Email: "kai@example.com"},
		BookingTime:   time.Date(2024, time.May, 2, 0, 30, 0, 0, time.UTC),
		Status:        model.ReservationStatusConfirmed,
		Note:          "color",
		WalkInBooking: true,
		Guests:        []model.Guest{{DisplayName: "Kai"}},
	}

	row := FromReservation(r)
	assert.Equal(t, int64(12), row.ID)
	assert.True(t, row.CustomerID.Valid)
	assert.Equal(t, "CONFIRMED", row.Status)

	got := row.ToModel(loc)
	assert.Equal(t, int64(12), *got.ID)
	assert.Equal(t, int64(3), *got.Customer.ID)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, loc), got.Date)
	assert.Equal(t, 10, got.BookingTime.Hour())
	assert.Equal(t, model.ReservationStatusConfirmed, got.Status)
	assert.True(t, got.WalkInBooking)
	assert.Equal(t, "Kai", got.Guests[0].DisplayName)

	t.Run("顧客IDなし", func(t *testing.T) {
		r.Customer.ID = nil
		assert.Nil(t, FromReservation(r).ToModel(nil).Customer.ID)
	})
}
