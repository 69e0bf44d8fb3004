package booking

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func service(id int64, staff *int) model.GuestService {
	return model.GuestService{
		ServiceItem:   model.ServiceItem{ID: id, Name: "service"},
		AssignedStaff: staff,
	}
}

func guestWith(services ...model.GuestService) model.Guest {
	return model.Guest{Services: services}
}

func assignedStaff(t *testing.T, g model.Guest) []int {
	t.Helper()
	out := make([]int, 0, len(g.Services))
	for _, s := range g.Services {
		require.NotNil(t, s.AssignedStaff)
		out = append(out, *s.AssignedStaff)
	}
	return out
}

func TestResolver_SpecificStaff(t *testing.T) {
	r := NewResolver(rand.New(rand.NewPCG(1, 2)))
	guests := []model.Guest{
		guestWith(service(1, nil), service(2, nil)),
		guestWith(service(3, nil), service(4, nil)),
	}

	got, err := r.Resolve(model.TimeSlot{Time: "10:00", StaffIDs: []int{3, 7}}, model.SpecificStaff(7), guests, nil)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, []int{7, 7}, assignedStaff(t, got[0]))
	assert.Equal(t, []int{7, 7}, assignedStaff(t, got[1]))

	// 入力は変更しない
	assert.Nil(t, guests[0].Services[0].AssignedStaff)
}

func TestResolver_AnySingleGuest(t *testing.T) {
	slot := model.TimeSlot{Time: "10:00", StaffIDs: []int{4, 8, 15}}
	guests := []model.Guest{guestWith(service(1, nil), service(2, nil))}

	got, err := NewResolver(rand.New(rand.NewPCG(1, 2))).Resolve(slot, model.AnyStaff(), guests, nil)
	require.NoError(t, err)

	want := slot.StaffIDs[rand.New(rand.NewPCG(1, 2)).IntN(len(slot.StaffIDs))]
	assert.Equal(t, []int{want, want}, assignedStaff(t, got[0]))

	t.Run("同じシードなら同じ結果", func(t *testing.T) {
		again, err := NewResolver(rand.New(rand.NewPCG(1, 2))).Resolve(slot, model.AnyStaff(), guests, nil)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})

	t.Run("施術なしのゲスト", func(t *testing.T) {
		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), []model.Guest{{}}, nil)
		require.NoError(t, err)
		assert.Empty(t, got[0].Services)
	})

	t.Run("空きスタッフなし", func(t *testing.T) {
		_, err := NewResolver(nil).Resolve(model.TimeSlot{Time: "10:00"}, model.AnyStaff(), guests, nil)
		var serr *InsufficientStaffError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 1, serr.Shortfall())
	})
}

func TestResolver_AnyGroup(t *testing.T) {
	t.Run("位置でスタッフを割り当てる", func(t *testing.T) {
		slot := model.TimeSlot{Time: "11:00", StaffIDs: []int{5, 9}}
		guests := []model.Guest{
			guestWith(service(1, nil)),
			guestWith(service(2, nil), service(3, nil)),
		}

		for i := 0; i < 3; i++ {
			got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, nil)
			require.NoError(t, err)
			assert.Equal(t, []int{5}, assignedStaff(t, got[0]))
			assert.Equal(t, []int{9, 9}, assignedStaff(t, got[1]))
		}
	})

	t.Run("スタッフが足りない", func(t *testing.T) {
		slot := model.TimeSlot{Time: "11:00", StaffIDs: []int{5, 9}}
		guests := []model.Guest{
			guestWith(service(1, intPtr(2))),
			guestWith(service(2, nil)),
			guestWith(service(3, nil)),
		}

		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, nil)
		assert.Nil(t, got)

		var serr *InsufficientStaffError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 3, serr.Required)
		assert.Equal(t, 2, serr.Available)
		assert.Equal(t, 1, serr.Shortfall())

		assert.Equal(t, 2, *guests[0].Services[0].AssignedStaff)
		assert.Nil(t, guests[1].Services[0].AssignedStaff)
		assert.Nil(t, guests[2].Services[0].AssignedStaff)
	})

	t.Run("ゲストごとに異なるスタッフ", func(t *testing.T) {
		slot := model.TimeSlot{Time: "11:00", StaffIDs: []int{1, 2, 3, 4}}
		guests := []model.Guest{
			guestWith(service(1, nil)),
			guestWith(service(1, nil)),
			guestWith(service(1, nil)),
			guestWith(service(1, nil)),
		}
		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, nil)
		require.NoError(t, err)

		for i, g := range got {
			assert.Equal(t, []int{slot.StaffIDs[i]}, assignedStaff(t, g))
		}
	})
}

func TestResolver_EditPreservation(t *testing.T) {
	t.Run("1名: 元の担当者が空いていれば維持する", func(t *testing.T) {
		previous := []model.Guest{guestWith(service(1, intPtr(7)), service(2, intPtr(7)))}
		guests := model.CloneGuests(previous)
		slot := model.TimeSlot{Time: "15:00", StaffIDs: []int{3, 7, 9}}

		for seed := uint64(0); seed < 5; seed++ {
			got, err := NewResolver(rand.New(rand.NewPCG(seed, seed))).Resolve(slot, model.AnyStaff(), guests, previous)
			require.NoError(t, err)
			assert.Equal(t, []int{7, 7}, assignedStaff(t, got[0]))
		}
	})

	t.Run("1名: 追加した施術だけ割り当て直す", func(t *testing.T) {
		previous := []model.Guest{guestWith(service(1, intPtr(7)))}
		guests := []model.Guest{guestWith(service(1, intPtr(7)), service(2, nil))}
		slot := model.TimeSlot{Time: "15:00", StaffIDs: []int{3, 7}}

		got, err := NewResolver(rand.New(rand.NewPCG(1, 2))).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)

		staff := assignedStaff(t, got[0])
		assert.Equal(t, 7, staff[0])
		assert.Contains(t, slot.StaffIDs, staff[1])
	})

	t.Run("1名: 元の担当者が空いていない", func(t *testing.T) {
		previous := []model.Guest{guestWith(service(1, intPtr(7)))}
		guests := model.CloneGuests(previous)
		slot := model.TimeSlot{Time: "15:00", StaffIDs: []int{3, 9}}

		got, err := NewResolver(rand.New(rand.NewPCG(1, 2))).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)

		want := slot.StaffIDs[rand.New(rand.NewPCG(1, 2)).IntN(len(slot.StaffIDs))]
		assert.Equal(t, []int{want}, assignedStaff(t, got[0]))
	})

	t.Run("複数名: IDで対応させて維持する", func(t *testing.T) {
		previous := []model.Guest{
			{ID: int64Ptr(1), Services: []model.GuestService{service(1, intPtr(9))}},
			{ID: int64Ptr(2), Services: []model.GuestService{service(2, intPtr(5))}},
		}
		// 並び順が変わってもIDで対応させる
		guests := []model.Guest{
			{ID: int64Ptr(2), Services: []model.GuestService{service(2, intPtr(5))}},
			{ID: int64Ptr(1), Services: []model.GuestService{service(1, intPtr(9))}},
		}
		slot := model.TimeSlot{Time: "16:00", StaffIDs: []int{9, 5, 3}}

		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)
		assert.Equal(t, []int{5}, assignedStaff(t, got[0]))
		assert.Equal(t, []int{9}, assignedStaff(t, got[1]))
	})

	t.Run("複数名: 維持された担当者とは重ならない", func(t *testing.T) {
		previous := []model.Guest{
			{ID: int64Ptr(1), Services: []model.GuestService{service(1, intPtr(5))}},
			{ID: int64Ptr(2), Services: []model.GuestService{service(2, intPtr(3))}},
		}
		guests := model.CloneGuests(previous)
		slot := model.TimeSlot{Time: "16:00", StaffIDs: []int{9, 5}}

		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)
		assert.Equal(t, []int{5}, assignedStaff(t, got[0]))
		assert.Equal(t, []int{9}, assignedStaff(t, got[1]))
	})

	t.Run("複数名: IDのないゲストは位置で対応させる", func(t *testing.T) {
		previous := []model.Guest{
			guestWith(service(1, intPtr(2))),
			guestWith(service(1, intPtr(1))),
		}
		guests := model.CloneGuests(previous)
		slot := model.TimeSlot{Time: "16:00", StaffIDs: []int{1, 2}}

		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, assignedStaff(t, got[0]))
		assert.Equal(t, []int{1}, assignedStaff(t, got[1]))
	})

	t.Run("指名なしのIDは維持しない", func(t *testing.T) {
		previous := []model.Guest{guestWith(service(1, intPtr(model.AnyProfessionalID)))}
		guests := model.CloneGuests(previous)
		slot := model.TimeSlot{Time: "16:00", StaffIDs: []int{4}}

		got, err := NewResolver(nil).Resolve(slot, model.AnyStaff(), guests, previous)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, assignedStaff(t, got[0]))
	})
}
