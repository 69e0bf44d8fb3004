package model

import (
	"fmt"
	"time"
)

// NotificationType は通知の種類を表します
type NotificationType string

const (
	// NotificationTypeReservationCreated は予約作成の通知を表します
	NotificationTypeReservationCreated NotificationType = "reservation_created"
	// NotificationTypeReservationUpdated は予約変更の通知を表します
	NotificationTypeReservationUpdated NotificationType = "reservation_updated"
	// NotificationTypeBookingFailed は予約処理の失敗を表します
	NotificationTypeBookingFailed NotificationType = "booking_failed"
)

// Notification はStep Functionsの後続ステートへ渡す通知の定義です
// 通知の配送自体は後続ステートが担当します
type Notification struct {
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
	Data      map[string]any   `json:"data"`
}

// NewReservationNotification は予約イベントから通知を作成します
func NewReservationNotification(event ReservationEvent) Notification {
	t := NotificationTypeReservationCreated
	if event.Type == ReservationEventUpdated {
		t = NotificationTypeReservationUpdated
	}

	data := map[string]any{
		"reservation_id": event.ReservationID,
		"booking_time":   event.BookingTime.Format(time.RFC3339),
		"status":         string(event.Status),
		"staff_ids":      event.StaffIDs,
		"guest_count":    event.GuestCount,
	}
	if event.CustomerID != nil {
		data["customer_id"] = *event.CustomerID
	}

	return Notification{
		Type:      t,
		CreatedAt: event.CreatedAt,
		Data:      data,
	}
}

// NewBookingFailedNotification は処理できなかった予約リクエストの通知を作成します
func NewBookingFailedNotification(requestID string, reason error, now time.Time) Notification {
	return Notification{
		Type:      NotificationTypeBookingFailed,
		CreatedAt: now,
		Data: map[string]any{
			"request_id": requestID,
			"reason":     fmt.Sprint(reason),
		},
	}
}
