package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// StaffClient はスタッフ名簿APIのクライアントです
type StaffClient struct {
	apiClient
}

func NewStaffClient(cfg Config) *StaffClient {
	return &StaffClient{apiClient: newAPIClient(cfg)}
}

// ListStaff はスタッフ一覧を取得します
func (c *StaffClient) ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	q := url.Values{}
	q.Set("active", strconv.FormatBool(activeOnly))

	var out []model.Staff
	if err := c.do(ctx, "staff", http.MethodGet, "/staff", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
