package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/uma-arai/sbcntr-booking/internal/common/models"
	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// ErrReservationNotFound は指定IDの予約が存在しない場合のエラーです
var ErrReservationNotFound = errors.New("reservation not found")

type ReservationRepository interface {
	CreateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
	UpdateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	GetReservationsByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
}

type ReservationRepositoryImpl struct {
	db  *DB
	loc *time.Location
	now func() time.Time
}

func NewReservationRepository(db *DB, loc *time.Location) *ReservationRepositoryImpl {
	if loc == nil {
		loc = time.Local
	}
	return &ReservationRepositoryImpl{db: db, loc: loc, now: time.Now}
}

const reservationColumns = `
			id,
			customer_id,
			customer_name,
			customer_phone,
			customer_email,
			booking_time,
			status,
			note,
			walk_in_booking,
			guests,
			created_at,
			updated_at`

// CreateReservation は予約を作成し、採番されたIDを設定して返します
// IDのないゲストには予約内で一意なIDを振ります
func (r *ReservationRepositoryImpl) CreateReservation(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.CreateReservation")

	if !res.IsNew() {
		err := fmt.Errorf("reservation already has ID %d", *res.ID)
		closeSegment(seg, err)
		return model.Reservation{}, err
	}

	out := res.Clone()
	assignGuestIDs(out.Guests)
	now := r.now()
	out.CreatedAt = now
	out.UpdatedAt = now

	row := models.FromReservation(out)

	query := `
		INSERT INTO reservations (
			customer_id,
			customer_name,
			customer_phone,
			customer_email,
			booking_time,
			status,
			note,
			walk_in_booking,
			guests,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		row.CustomerID,
		row.CustomerName,
		row.CustomerPhone,
		row.CustomerEmail,
		row.BookingTime,
		row.Status,
		row.Note,
		row.WalkInBooking,
		row.Guests,
		row.CreatedAt,
		row.UpdatedAt,
	).Scan(&id)
	if err != nil {
		closeSegment(seg, err)
		return model.Reservation{}, fmt.Errorf("failed to create reservation: %w", err)
	}

	out.ID = &id
	closeSegment(seg, nil)
	return out, nil
}

// UpdateReservation は予約全体を更新します
func (r *ReservationRepositoryImpl) UpdateReservation(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.UpdateReservation")

	if res.IsNew() {
		err := errors.New("reservation to update has no ID")
		closeSegment(seg, err)
		return model.Reservation{}, err
	}

	out := res.Clone()
	assignGuestIDs(out.Guests)
	out.UpdatedAt = r.now()

	row := models.FromReservation(out)

	query := `
		UPDATE reservations
		SET customer_id = $1,
			customer_name = $2,
			customer_phone = $3,
			customer_email = $4,
			booking_time = $5,
			status = $6,
			note = $7,
			walk_in_booking = $8,
			guests = $9,
			updated_at = $10
		WHERE id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		row.CustomerID,
		row.CustomerName,
		row.CustomerPhone,
		row.CustomerEmail,
		row.BookingTime,
		row.Status,
		row.Note,
		row.WalkInBooking,
		row.Guests,
		row.UpdatedAt,
		row.ID,
	)
	if err != nil {
		closeSegment(seg, err)
		return model.Reservation{}, fmt.Errorf("failed to update reservation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		closeSegment(seg, err)
		return model.Reservation{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("%w: ID %d", ErrReservationNotFound, row.ID)
		closeSegment(seg, err)
		return model.Reservation{}, err
	}

	closeSegment(seg, nil)
	return out, nil
}

// GetReservation は予約を1件取得します
func (r *ReservationRepositoryImpl) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.GetReservation")

	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE id = $1
	`

	var row models.Reservation
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: ID %d", ErrReservationNotFound, id)
			closeSegment(seg, err)
			return model.Reservation{}, err
		}
		closeSegment(seg, err)
		return model.Reservation{}, fmt.Errorf("failed to get reservation %d: %w", id, err)
	}

	closeSegment(seg, nil)
	return row.ToModel(r.loc), nil
}

// GetReservationsByStatus は、指定されたステータスの予約を予約日時の昇順で取得します
func (r *ReservationRepositoryImpl) GetReservationsByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.GetReservationsByStatus")

	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE status = $1
		ORDER BY booking_time ASC
	`

	rows, err := r.db.QueryxContext(ctx, query, string(status))
	if err != nil {
		closeSegment(seg, err)
		return nil, fmt.Errorf("failed to query reservations with status %s: %w", status, err)
	}
	defer rows.Close()

	reservations := []model.Reservation{}
	for rows.Next() {
		var row models.Reservation
		if err := rows.StructScan(&row); err != nil {
			closeSegment(seg, err)
			return nil, fmt.Errorf("failed to scan reservation row: %w", err)
		}
		reservations = append(reservations, row.ToModel(r.loc))
	}

	if err = rows.Err(); err != nil {
		closeSegment(seg, err)
		return nil, fmt.Errorf("error iterating reservation rows: %w", err)
	}

	closeSegment(seg, nil)
	return reservations, nil
}

// assignGuestIDs はIDのないゲストに、既存の最大ID以降の番号を振ります
func assignGuestIDs(guests []model.Guest) {
	var maxID int64
	for _, g := range guests {
		if g.ID != nil && *g.ID > maxID {
			maxID = *g.ID
		}
	}
	for i := range guests {
		if guests[i].ID != nil {
			continue
		}
		maxID++
		id := maxID
		guests[i].ID = &id
	}
}
