package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// AvailabilityDateLayout は空き状況APIの日付形式(DD/MM/YYYY)です
const AvailabilityDateLayout = "02/01/2006"

// AvailabilityClient は空き状況APIのクライアントです
type AvailabilityClient struct {
	apiClient
}

func NewAvailabilityClient(cfg Config) *AvailabilityClient {
	return &AvailabilityClient{apiClient: newAPIClient(cfg)}
}

// GetAvailability は指定日・スタッフの空き状況を取得します
// レスポンスは "HH:mm" をキーにした空きスタッフIDの一覧です
func (c *AvailabilityClient) GetAvailability(ctx context.Context, date time.Time, mode model.StaffMode) (model.AvailabilityMap, error) {
	q := url.Values{}
	q.Set("date", date.Format(AvailabilityDateLayout))
	q.Set("staff_id", mode.QueryValue())

	var out model.AvailabilityMap
	if err := c.do(ctx, "availability", http.MethodGet, "/availability", q, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = model.AvailabilityMap{}
	}
	return out, nil
}
