package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AvailabilityMap は空き状況APIのレスポンスです
// キーは"HH:mm"、値はその時刻に空いているスタッフIDの一覧です
type AvailabilityMap map[string][]int

// TimeSlot は予約可能な時間枠です
type TimeSlot struct {
	Time     string `json:"time"`      // HH:mm
	StaffIDs []int  `json:"staff_ids"` // 重複なし、フィード順
}

// HasStaff は指定のスタッフがこの枠で空いているかを返します
func (s TimeSlot) HasStaff(staffID int) bool {
	for _, id := range s.StaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// Hour は枠の時(0-23)を返します
func (s TimeSlot) Hour() int {
	h, _, err := ParseClock(s.Time)
	if err != nil {
		return -1
	}
	return h
}

// ParseClock は"HH:mm"(先頭ゼロなしも可)を時と分に分解します
func ParseClock(v string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid minute in %q", v)
	}
	return h, m, nil
}

// FormatClock は時と分を"HH:mm"に整形します
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// CombineDateAndClock は日付(年月日のみ使用)と"HH:mm"から日時を作ります
func CombineDateAndClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = date.Location()
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

// DateOnly は時刻を切り捨てた日付を返します
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay は2つの日時が同じ暦日かどうかを返します
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
