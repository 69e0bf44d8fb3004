package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// StaffRepository はスタッフ名簿の取得を担当するインターフェースです
type StaffRepository interface {
	ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error)
}

// StaffRepositoryImpl はStaffRepositoryの実装です
type StaffRepositoryImpl struct {
	db *DB
}

// NewStaffRepository は新しいStaffRepositoryを作成します
func NewStaffRepository(db *DB) *StaffRepositoryImpl {
	return &StaffRepositoryImpl{db: db}
}

// ListStaff はスタッフ一覧をID順に取得します
// 「指名なし」(ID 0)は名簿に含まれません
func (r *StaffRepositoryImpl) ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "StaffRepository.ListStaff")

	query := `
		SELECT
			id,
			display_name,
			active
		FROM staff
		WHERE id <> 0
		AND ($1 = FALSE OR active = TRUE)
		ORDER BY id ASC
	`

	rows, err := r.db.QueryxContext(ctx, query, activeOnly)
	if err != nil {
		closeSegment(seg, err)
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	staff := []model.Staff{}
	for rows.Next() {
		var s model.Staff
		if err := rows.StructScan(&s); err != nil {
			closeSegment(seg, err)
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		staff = append(staff, s)
	}
	if err := rows.Err(); err != nil {
		closeSegment(seg, err)
		return nil, fmt.Errorf("error iterating staff rows: %w", err)
	}

	closeSegment(seg, nil)
	return staff, nil
}
