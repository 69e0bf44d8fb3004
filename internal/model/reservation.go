package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus は予約のステータスを表します
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Valid は定義済みのステータスかどうかを返します
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled:
		return true
	}
	return false
}

// ServiceItem は店舗のメニュー(施術)です
type ServiceItem struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
}

// GuestService はゲストが受ける施術と担当スタッフの組です
// AssignedStaff はスタッフ割り当てが解決されるまでnilです
type GuestService struct {
	ServiceItem   ServiceItem `json:"service_item"`
	AssignedStaff *int        `json:"assigned_staff"`
}

// Guest は1件の予約に含まれる来店者です
type Guest struct {
	ID                 *int64          `json:"id"`
	DisplayName        string          `json:"display_name"`
	Services           []GuestService  `json:"services"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	TotalEstimatedTime int             `json:"total_estimated_time"` // minutes
}

// RecalculateTotals はServicesから合計金額と所要時間を再計算します
func (g *Guest) RecalculateTotals() {
	total := decimal.Zero
	minutes := 0
	for _, s := range g.Services {
		total = total.Add(s.ServiceItem.Price)
		minutes += s.ServiceItem.DurationMinutes
	}
	g.TotalPrice = total
	g.TotalEstimatedTime = minutes
}

// Clone はServicesと割り当てを含めたディープコピーを返します
func (g Guest) Clone() Guest {
	out := g
	if g.ID != nil {
		id := *g.ID
		out.ID = &id
	}
	out.Services = make([]GuestService, len(g.Services))
	for i, s := range g.Services {
		out.Services[i] = s
		if s.AssignedStaff != nil {
			staffID := *s.AssignedStaff
			out.Services[i].AssignedStaff = &staffID
		}
	}
	return out
}

// CloneGuests はゲスト一覧のディープコピーを返します
func CloneGuests(guests []Guest) []Guest {
	if guests == nil {
		return nil
	}
	out := make([]Guest, len(guests))
	for i, g := range guests {
		out[i] = g.Clone()
	}
	return out
}

// Customer は予約者です
type Customer struct {
	ID    *int64 `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Reservation は予約です
// BookingTime はDateに選択した時間枠を足した日時です
type Reservation struct {
	ID            *int64            `json:"id,omitempty"`
	Customer      Customer          `json:"customer"`
	Date          time.Time         `json:"date"`
	BookingTime   time.Time         `json:"booking_time"`
	Status        ReservationStatus `json:"status"`
	Note          string            `json:"note"`
	Guests        []Guest           `json:"guests"`
	WalkInBooking bool              `json:"walk_in_booking"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at,omitempty"`
}

// IsNew は永続化前の予約かどうかを返します
func (r Reservation) IsNew() bool {
	return r.ID == nil
}

// Clone はゲストを含めたディープコピーを返します
func (r Reservation) Clone() Reservation {
	out := r
	if r.ID != nil {
		id := *r.ID
		out.ID = &id
	}
	if r.Customer.ID != nil {
		id := *r.Customer.ID
		out.Customer.ID = &id
	}
	out.Guests = CloneGuests(r.Guests)
	return out
}

// ReservationEvent は予約の作成・更新完了時に発行されるイベントの構造体
type ReservationEvent struct {
	Type          string            `json:"type"` // reservation.created, reservation.updated
	ReservationID int64             `json:"reservation_id"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	BookingTime   time.Time         `json:"booking_time"`
	Status        ReservationStatus `json:"status"`
	StaffIDs      []int             `json:"staff_ids"`
	GuestCount    int               `json:"guest_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

const (
	ReservationEventCreated = "reservation.created"
	ReservationEventUpdated = "reservation.updated"
)

// NewReservationEvent は保存済みの予約からイベントを作成します
func NewReservationEvent(eventType string, r Reservation, now time.Time) ReservationEvent {
	var id int64
	if r.ID != nil {
		id = *r.ID
	}

	seen := make(map[int]struct{})
	var staffIDs []int
	for _, g := range r.Guests {
		for _, s := range g.Services {
			if s.AssignedStaff == nil {
				continue
			}
			if _, ok := seen[*s.AssignedStaff]; ok {
				continue
			}
			seen[*s.AssignedStaff] = struct{}{}
			staffIDs = append(staffIDs, *s.AssignedStaff)
		}
	}

	return ReservationEvent{
		Type:          eventType,
		ReservationID: id,
		CustomerID:    r.Customer.ID,
		BookingTime:   r.BookingTime,
		Status:        r.Status,
		StaffIDs:      staffIDs,
		GuestCount:    len(r.Guests),
		CreatedAt:     now,
	}
}
