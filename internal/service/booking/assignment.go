package booking

import (
	"math/rand/v2"
	"time"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// Resolver は選択された時間枠のスタッフをゲストの施術ごとに割り当てます
type Resolver struct {
	rng *rand.Rand
}

// NewResolver は新しいResolverを作成します
// rngがnilの場合は現在時刻をシードにした乱数を使います
func NewResolver(rng *rand.Rand) *Resolver {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Resolver{rng: rng}
}

// Resolve はguestsのコピーにスタッフを割り当てて返します
//
//   - 指名あり: 全ゲストの全施術に指名スタッフを割り当てます
//   - 指名なし・1名: 枠のスタッフから1名を無作為に選び、全施術に割り当てます
//   - 指名なし・複数名: 枠のスタッフ数がゲスト数未満なら InsufficientStaffError。
//     ゲストiには slot.StaffIDs[i] を割り当てます(位置で決まる固定の対応)
//
// previous には予約変更時の変更前のゲストを渡します。変更前の担当者が新しい枠でも
// 空いている施術はその担当者を維持し、それ以外だけ上記の規則で割り当てます。
// エラー時、guestsは変更されません。
func (r *Resolver) Resolve(slot model.TimeSlot, mode model.StaffMode, guests []model.Guest, previous []model.Guest) ([]model.Guest, error) {
	out := model.CloneGuests(guests)

	if !mode.IsAny() {
		for gi := range out {
			for si := range out[gi].Services {
				staffID := mode.StaffID
				out[gi].Services[si].AssignedStaff = &staffID
			}
		}
		return out, nil
	}

	required := len(out)
	if required < 1 {
		required = 1
	}
	if len(slot.StaffIDs) < required {
		return nil, &InsufficientStaffError{Required: required, Available: len(slot.StaffIDs)}
	}

	kept := r.preservedAssignments(slot, out, previous)

	if len(out) == 1 {
		var picked *int
		for si := range out[0].Services {
			if staffID, ok := kept[serviceKey{0, si}]; ok {
				out[0].Services[si].AssignedStaff = &staffID
				continue
			}
			if picked == nil {
				id := slot.StaffIDs[r.rng.IntN(len(slot.StaffIDs))]
				picked = &id
			}
			staffID := *picked
			out[0].Services[si].AssignedStaff = &staffID
		}
		return out, nil
	}

	// 他のゲストが維持している担当者と、先のゲストに割り当てた担当者は使わない
	claimedBy := make(map[int]int)
	for gi := range out {
		for si := range out[gi].Services {
			staffID, ok := kept[serviceKey{gi, si}]
			if !ok {
				continue
			}
			if _, claimed := claimedBy[staffID]; !claimed {
				claimedBy[staffID] = gi
			}
		}
	}

	for gi := range out {
		needsFallback := false
		for si := range out[gi].Services {
			if _, ok := kept[serviceKey{gi, si}]; !ok {
				needsFallback = true
				break
			}
		}

		var fallback int
		if needsFallback {
			fallback = positionalStaff(slot.StaffIDs, gi, claimedBy)
			if _, ok := claimedBy[fallback]; !ok {
				claimedBy[fallback] = gi
			}
		}

		for si := range out[gi].Services {
			staffID, ok := kept[serviceKey{gi, si}]
			if !ok {
				staffID = fallback
			}
			out[gi].Services[si].AssignedStaff = &staffID
		}
	}
	return out, nil
}

type serviceKey struct {
	guest   int
	service int
}

// preservedAssignments は変更前の担当者のうち、新しい枠でも空いているものを返します
func (r *Resolver) preservedAssignments(slot model.TimeSlot, guests, previous []model.Guest) map[serviceKey]int {
	kept := make(map[serviceKey]int)
	if len(previous) == 0 {
		return kept
	}

	for gi, g := range guests {
		prev, ok := matchPreviousGuest(g, gi, previous)
		if !ok {
			continue
		}

		used := make([]bool, len(prev.Services))
		for si, s := range g.Services {
			for pi, ps := range prev.Services {
				if used[pi] || ps.ServiceItem.ID != s.ServiceItem.ID {
					continue
				}
				used[pi] = true
				if ps.AssignedStaff != nil && *ps.AssignedStaff != model.AnyProfessionalID && slot.HasStaff(*ps.AssignedStaff) {
					kept[serviceKey{gi, si}] = *ps.AssignedStaff
				}
				break
			}
		}
	}
	return kept
}

// matchPreviousGuest はIDで変更前のゲストを探し、IDがない場合は位置で対応させます
func matchPreviousGuest(g model.Guest, index int, previous []model.Guest) (model.Guest, bool) {
	if g.ID != nil {
		for _, p := range previous {
			if p.ID != nil && *p.ID == *g.ID {
				return p, true
			}
		}
		return model.Guest{}, false
	}
	if index < len(previous) && previous[index].ID == nil {
		return previous[index], true
	}
	return model.Guest{}, false
}

// positionalStaff はゲストiの位置に対応するスタッフを返します
// 他のゲストが維持している担当者に当たった場合は、未使用のスタッフを枠の順に探します
func positionalStaff(staffIDs []int, guest int, claimedBy map[int]int) int {
	candidate := staffIDs[guest]
	if owner, ok := claimedBy[candidate]; !ok || owner == guest {
		return candidate
	}

	taken := make(map[int]struct{}, len(claimedBy))
	for id, owner := range claimedBy {
		if owner != guest {
			taken[id] = struct{}{}
		}
	}
	for offset := 0; offset < len(staffIDs); offset++ {
		id := staffIDs[(guest+offset)%len(staffIDs)]
		if _, ok := taken[id]; !ok {
			return id
		}
	}
	return candidate
}
