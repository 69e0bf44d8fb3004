package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingRequest_Check(t *testing.T) {
	id := int64(3)
	tests := []struct {
		name    string
		req     BookingRequest
		wantErr string
	}{
		{name: "新規予約", req: BookingRequest{RequestID: "r", Date: "2024-05-02", Guests: []BookingGuest{{}}}},
		{name: "既存予約の変更は日付なしでよい", req: BookingRequest{RequestID: "r", ReservationID: &id}},
		{name: "request_idなし", req: BookingRequest{Date: "2024-05-02", Guests: []BookingGuest{{}}}, wantErr: "request_id is required"},
		{name: "新規で日付なし", req: BookingRequest{RequestID: "r", Guests: []BookingGuest{{}}}, wantErr: "date is required"},
		{name: "新規でゲストなし", req: BookingRequest{RequestID: "r", Date: "2024-05-02"}, wantErr: "at least one guest"},
		{name: "不明なステータス", req: BookingRequest{RequestID: "r", ReservationID: &id, Status: "DONE"}, wantErr: `unknown status "DONE"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBookingRequest_ParseDate(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)

	d, err := BookingRequest{Date: "2024-05-02"}.ParseDate(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, loc), d)

	_, err = BookingRequest{Date: "02/05/2024"}.ParseDate(loc)
	assert.ErrorContains(t, err, "invalid date")
}

func TestBookingRequest_StaffMode(t *testing.T) {
	staff := 4
	assert.Equal(t, AnyStaff(), BookingRequest{}.StaffMode())
	assert.Equal(t, SpecificStaff(4), BookingRequest{StaffID: &staff}.StaffMode())
}

func TestBookingGuest_GuestServices(t *testing.T) {
	g := BookingGuest{Services: []ServiceItem{
		{ID: 1, Name: "Cut", Price: decimal.NewFromInt(60), DurationMinutes: 30},
		{ID: 2, Name: "Colour", Price: decimal.NewFromInt(120), DurationMinutes: 90},
	}}

	got := g.GuestServices()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ServiceItem.ID)
	assert.Nil(t, got[0].AssignedStaff)
	assert.NotNil(t, BookingGuest{}.GuestServices())
}
