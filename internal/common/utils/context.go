package utils

import (
	"context"
	"fmt"
	"time"
)

// RunWithTimeout は指定されたタイムアウト時間内で処理を実行します
// タイムアウトを超えた場合は、コンテキストをキャンセルしてエラーを返します
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		if err := context.Cause(ctx); err != nil && err != context.DeadlineExceeded {
			return fmt.Errorf("booking batch stopped: %w", err)
		}
		return fmt.Errorf("booking batch timed out after %v", timeout)
	}
}
