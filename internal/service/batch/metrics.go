package batch

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/uma-arai/sbcntr-booking/internal/service/booking"
)

// PushMetrics は予約フォームのメトリクスをPushgatewayへ送信します
func PushMetrics(url, job string) error {
	pusher := push.New(url, job)
	for _, c := range booking.Collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
