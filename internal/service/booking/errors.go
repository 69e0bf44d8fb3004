package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFormClosed は送信完了またはキャンセル済みのフォームを操作した場合のエラーです
var ErrFormClosed = errors.New("reservation form is closed")

// ErrSlotNotOffered は現在の空き枠にない時刻を選択した場合のエラーです
var ErrSlotNotOffered = errors.New("time slot is not offered for the current selection")

// InsufficientStaffError はグループ予約に必要な人数のスタッフが空いていない場合のエラーです
type InsufficientStaffError struct {
	Required  int
	Available int
}

func (e *InsufficientStaffError) Error() string {
	return fmt.Sprintf("insufficient staff: %d required, %d available (short by %d)",
		e.Required, e.Available, e.Shortfall())
}

// Shortfall は不足しているスタッフ数を返します
func (e *InsufficientStaffError) Shortfall() int {
	return e.Required - e.Available
}

// ValidationError は送信前の入力チェックで見つかったフィールド単位のエラーです
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has は指定フィールドにエラーがあるかを返します
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// PersistenceError は予約の作成・更新呼び出しの失敗です
// 自動リトライは行いません
type PersistenceError struct {
	Op  string // create, update
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s reservation: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrSubmitInProgress は送信中にフォームを操作した場合のエラーです
var ErrSubmitInProgress = errors.New("reservation submission is in progress")
