package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

var testLoc = time.FixedZone("AEST", 10*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func TestFilterSlots(t *testing.T) {
	today := day(2024, time.May, 1)

	tests := []struct {
		name      string
		raw       model.AvailabilityMap
		date      time.Time
		now       time.Time
		headcount int
		want      []model.TimeSlot
	}{
		{
			name: "当日は現在の時以前の枠を除外する",
			raw: model.AvailabilityMap{
				"14:00": {1, 2},
				"15:00": {1, 2, 3},
			},
			date:      today,
			now:       time.Date(2024, time.May, 1, 14, 30, 0, 0, testLoc),
			headcount: 1,
			want:      []model.TimeSlot{{Time: "15:00", StaffIDs: []int{1, 2, 3}}},
		},
		{
			name: "同じ時内の分は除外される",
			raw: model.AvailabilityMap{
				"14:59": {1},
				"15:00": {2},
			},
			date:      today,
			now:       time.Date(2024, time.May, 1, 14, 58, 0, 0, testLoc),
			headcount: 1,
			want:      []model.TimeSlot{{Time: "15:00", StaffIDs: []int{2}}},
		},
		{
			name: "翌日以降は時刻で除外しない",
			raw: model.AvailabilityMap{
				"09:00": {4},
				"08:30": {4},
			},
			date:      day(2024, time.May, 2),
			now:       time.Date(2024, time.May, 1, 23, 0, 0, 0, testLoc),
			headcount: 1,
			want: []model.TimeSlot{
				{Time: "08:30", StaffIDs: []int{4}},
				{Time: "09:00", StaffIDs: []int{4}},
			},
		},
		{
			name: "人数に満たない枠を除外する",
			raw: model.AvailabilityMap{
				"10:00": {1},
				"11:00": {1, 2},
				"12:00": {1, 2, 3},
			},
			date:      day(2024, time.May, 2),
			now:       today,
			headcount: 2,
			want: []model.TimeSlot{
				{Time: "11:00", StaffIDs: []int{1, 2}},
				{Time: "12:00", StaffIDs: []int{1, 2, 3}},
			},
		},
		{
			name: "重複した時刻はスタッフを統合する",
			raw: model.AvailabilityMap{
				"09:00": {2, 1},
				"9:00":  {1, 3},
			},
			date:      day(2024, time.May, 2),
			now:       today,
			headcount: 1,
			want:      []model.TimeSlot{{Time: "09:00", StaffIDs: []int{2, 1, 3}}},
		},
		{
			name: "指名なしのIDと不正な時刻は無視する",
			raw: model.AvailabilityMap{
				"10:00": {0, 5},
				"noon":  {1},
				"11:00": {0},
			},
			date:      day(2024, time.May, 2),
			now:       today,
			headcount: 1,
			want:      []model.TimeSlot{{Time: "10:00", StaffIDs: []int{5}}},
		},
		{
			name:      "該当なしは空のスライス",
			raw:       model.AvailabilityMap{"10:00": {1}},
			date:      today,
			now:       time.Date(2024, time.May, 1, 18, 0, 0, 0, testLoc),
			headcount: 1,
			want:      []model.TimeSlot{},
		},
		{
			name:      "nilのマップ",
			raw:       nil,
			date:      today,
			now:       today,
			headcount: 1,
			want:      []model.TimeSlot{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSlots(tt.raw, tt.date, tt.now, tt.headcount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterSlots_Properties(t *testing.T) {
	raw := model.AvailabilityMap{
		"08:00": {1},
		"9:00":  {1, 2},
		"09:00": {3},
		"10:15": {1, 2, 3, 4},
		"11:00": {},
		"13:45": {2, 4},
	}
	date := day(2024, time.June, 3)
	now := day(2024, time.June, 1)

	for k := 1; k <= 5; k++ {
		first := FilterSlots(raw, date, now, k)
		second := FilterSlots(raw, date, now, k)
		assert.Equal(t, first, second, "headcount %d", k)

		prev := -1
		for _, s := range first {
			assert.GreaterOrEqual(t, len(s.StaffIDs), k, "slot %s", s.Time)
			h, m, err := model.ParseClock(s.Time)
			assert.NoError(t, err)
			assert.Greater(t, h*60+m, prev)
			prev = h*60 + m
		}
	}
}

func TestFindSlot(t *testing.T) {
	slots := []model.TimeSlot{
		{Time: "09:00", StaffIDs: []int{1}},
		{Time: "10:30", StaffIDs: []int{2}},
	}

	s, ok := FindSlot(slots, "9:00")
	assert.True(t, ok)
	assert.Equal(t, "09:00", s.Time)

	_, ok = FindSlot(slots, "11:00")
	assert.False(t, ok)

	_, ok = FindSlot(slots, "bad")
	assert.False(t, ok)
}
