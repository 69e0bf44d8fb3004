package booking

import (
	"sort"
	"time"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// FilterSlots は空き状況APIの生データから予約可能な時間枠を作ります
//
// requiredHeadcount 人以上のスタッフが空いている時刻だけを残し、dateが当日の場合は
// 現在の「時」以前の枠を除外します。分単位ではなく時単位の判定です(フィード自体が
// 時単位のため)。同じ時刻の重複はスタッフIDを統合して1件にし、時刻の昇順で返します。
// 該当がない場合は空のスライスを返します。
func FilterSlots(raw model.AvailabilityMap, date, now time.Time, requiredHeadcount int) []model.TimeSlot {
	if requiredHeadcount < 1 {
		requiredHeadcount = 1
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type entry struct {
		minutes int
		slot    model.TimeSlot
		seen    map[int]struct{}
	}
	byTime := make(map[string]*entry, len(keys))

	for _, k := range keys {
		h, m, err := model.ParseClock(k)
		if err != nil {
			continue
		}
		clock := model.FormatClock(h, m)

		e, ok := byTime[clock]
		if !ok {
			e = &entry{
				minutes: h*60 + m,
				slot:    model.TimeSlot{Time: clock},
				seen:    make(map[int]struct{}),
			}
			byTime[clock] = e
		}
		for _, id := range raw[k] {
			if id == model.AnyProfessionalID {
				continue
			}
			if _, dup := e.seen[id]; dup {
				continue
			}
			e.seen[id] = struct{}{}
			e.slot.StaffIDs = append(e.slot.StaffIDs, id)
		}
	}

	today := model.SameDay(date, now)
	currentHour := now.Hour()

	entries := make([]*entry, 0, len(byTime))
	for _, e := range byTime {
		if len(e.slot.StaffIDs) < requiredHeadcount {
			continue
		}
		if today && e.slot.Hour() <= currentHour {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].minutes < entries[j].minutes
	})

	out := make([]model.TimeSlot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.slot)
	}
	return out
}

// FindSlot は時刻で時間枠を探します
func FindSlot(slots []model.TimeSlot, clock string) (model.TimeSlot, bool) {
	h, m, err := model.ParseClock(clock)
	if err != nil {
		return model.TimeSlot{}, false
	}
	want := model.FormatClock(h, m)
	for _, s := range slots {
		if s.Time == want {
			return s, true
		}
	}
	return model.TimeSlot{}, false
}
