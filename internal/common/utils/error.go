package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// GetStackWithError は、エラーとスタックトレースを組み合わせて返します
// errors.Is / errors.As で元のエラーを辿れます
func GetStackWithError(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// FormatStack はスタックトレース付きのエラーを1つの文字列にします
func FormatStack(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}
