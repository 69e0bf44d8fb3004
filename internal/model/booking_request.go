package model

import (
	"errors"
	"fmt"
	"time"
)

// BookingRequestDateLayout はバッチ入力の日付形式です
const BookingRequestDateLayout = "2006-01-02"

// BookingRequest は予約バッチに渡される1件の予約リクエストです
// ReservationID がある場合は既存予約の変更になります
type BookingRequest struct {
	RequestID     string         `json:"request_id"`
	ReservationID *int64         `json:"reservation_id,omitempty"`
	Date          string         `json:"date"`               // YYYY-MM-DD
	Time          string         `json:"time"`               // HH:mm
	StaffID       *int           `json:"staff_id,omitempty"` // nilは指名なし
	Guests        []BookingGuest `json:"guests"`
	Customer      *Customer      `json:"customer,omitempty"`
	Note          *string        `json:"note,omitempty"`
	WalkInBooking bool           `json:"walk_in_booking"`
	Status        string         `json:"status,omitempty"`
}

// BookingGuest はリクエスト内のゲストと希望する施術です
type BookingGuest struct {
	DisplayName string        `json:"display_name"`
	Services    []ServiceItem `json:"services"`
}

// ParseDate はDateを指定のタイムゾーンの日付として解釈します
func (r BookingRequest) ParseDate(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(BookingRequestDateLayout, r.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", r.Date, err)
	}
	return d, nil
}

// StaffMode はリクエストのスタッフ指定を返します
func (r BookingRequest) StaffMode() StaffMode {
	if r.StaffID == nil {
		return AnyStaff()
	}
	return SpecificStaff(*r.StaffID)
}

// Check はリクエストの形式をチェックします
// 予約内容そのもののチェックは予約フォームで行います
func (r BookingRequest) Check() error {
	if r.RequestID == "" {
		return errors.New("request_id is required")
	}
	if r.ReservationID == nil && r.Date == "" {
		return errors.New("date is required for a new reservation")
	}
	if len(r.Guests) == 0 && r.ReservationID == nil {
		return errors.New("at least one guest is required for a new reservation")
	}
	if r.Status != "" && !ReservationStatus(r.Status).Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}

// GuestServices はServicesを担当者未定の施術一覧にします
func (g BookingGuest) GuestServices() []GuestService {
	out := make([]GuestService, 0, len(g.Services))
	for _, s := range g.Services {
		out = append(out, GuestService{ServiceItem: s})
	}
	return out
}
