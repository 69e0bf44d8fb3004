package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// Reservation は reservations テーブルの1行です
// ゲストと施術はJSONBの guests 列に保存します
type Reservation struct {
	ID            int64         `db:"id"`
	CustomerID    sql.NullInt64 `db:"customer_id"`
	CustomerName  string        `db:"customer_name"`
	CustomerPhone string        `db:"customer_phone"`
	CustomerEmail string        `db:"customer_email"`
	BookingTime   time.Time     `db:"booking_time"`
	Status        string        `db:"status"` // PENDING, CONFIRMED, CANCELLED
	Note          string        `db:"note"`
	WalkInBooking bool          `db:"walk_in_booking"`
	Guests        Guests        `db:"guests"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// Guests はJSONB列との変換を行うゲスト一覧です
type Guests []model.Guest

// Value は driver.Valuer の実装です
func (g Guests) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]model.Guest(g))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guests: %w", err)
	}
	return b, nil
}

// Scan は sql.Scanner の実装です
func (g *Guests) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for guests column")
	}
	var out []model.Guest
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("failed to unmarshal guests: %w", err)
	}
	*g = out
	return nil
}

// FromReservation はドメインの予約から行を作成します
func FromReservation(r model.Reservation) Reservation {
	row := Reservation{
		CustomerName:  r.Customer.Name,
		CustomerPhone: r.Customer.Phone,
		CustomerEmail: r.Customer.Email,
		BookingTime:   r.BookingTime,
		Status:        string(r.Status),
		Note:          r.Note,
		WalkInBooking: r.WalkInBooking,
		Guests:        Guests(model.CloneGuests(r.Guests)),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ID != nil {
		row.ID = *r.ID
	}
	if r.Customer.ID != nil {
		row.CustomerID = sql.NullInt64{Int64: *r.Customer.ID, Valid: true}
	}
	return row
}

// ToModel は行をドメインの予約に変換します
// Date は loc での予約日です
func (row Reservation) ToModel(loc *time.Location) model.Reservation {
	bookingTime := row.BookingTime
	if loc != nil {
		bookingTime = bookingTime.In(loc)
	}

	id := row.ID
	r := model.Reservation{
		ID: &id,
		Customer: model.Customer{
			Name:  row.CustomerName,
			Phone: row.CustomerPhone,
			Email: row.CustomerEmail,
		},
		Date:          model.DateOnly(bookingTime),
		BookingTime:   bookingTime,
		Status:        model.ReservationStatus(row.Status),
		Note:          row.Note,
		Guests:        model.CloneGuests(row.Guests),
		WalkInBooking: row.WalkInBooking,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.CustomerID.Valid {
		customerID := row.CustomerID.Int64
		r.Customer.ID = &customerID
	}
	return r
}
