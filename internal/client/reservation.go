package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// IdempotencyKeyHeader は予約作成の重複防止キーのヘッダー名です
const IdempotencyKeyHeader = "Idempotency-Key"

// ReservationClient は予約APIのクライアントです
type ReservationClient struct {
	apiClient
	newKey func() string
}

func NewReservationClient(cfg Config) *ReservationClient {
	return &ReservationClient{
		apiClient: newAPIClient(cfg),
		newKey:    uuid.NewString,
	}
}

// CreateReservation は予約を作成し、IDが採番された予約を返します
func (c *ReservationClient) CreateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	if !r.IsNew() {
		return model.Reservation{}, errors.New("reservation to create must not have an id")
	}

	header := http.Header{}
	header.Set(IdempotencyKeyHeader, c.newKey())

	var out model.Reservation
	if err := c.do(ctx, "create reservation", http.MethodPost, "/reservations", nil, r, header, &out); err != nil {
		return model.Reservation{}, err
	}
	if out.ID == nil {
		return model.Reservation{}, errors.New("create reservation API returned no id")
	}
	return out, nil
}

// UpdateReservation は予約全体を送信して更新します
func (c *ReservationClient) UpdateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	if r.IsNew() {
		return model.Reservation{}, errors.New("reservation to update must have an id")
	}

	var out model.Reservation
	path := fmt.Sprintf("/reservations/%d", *r.ID)
	if err := c.do(ctx, "update reservation", http.MethodPut, path, nil, r, nil, &out); err != nil {
		return model.Reservation{}, err
	}
	if out.ID == nil {
		return model.Reservation{}, errors.New("update reservation API returned no id")
	}
	return out, nil
}

// GetReservation は予約を1件取得します
func (c *ReservationClient) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	var out model.Reservation
	path := fmt.Sprintf("/reservations/%d", id)
	if err := c.do(ctx, "get reservation", http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}
