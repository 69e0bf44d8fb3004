package booking

import (
	"fmt"
	"time"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// FormPhase は予約フォームの状態です
type FormPhase string

const (
	PhaseEditing          FormPhase = "editing"
	PhaseSubmittedSuccess FormPhase = "submitted-success"
	PhaseSubmittedFailure FormPhase = "submitted-failure"
	PhaseCancelled        FormPhase = "cancelled"
)

// AvailabilityQuery は空き状況の取得条件です
// レスポンスがどの入力に対して発行されたかの判定にも使います
type AvailabilityQuery struct {
	Date      time.Time
	StaffMode model.StaffMode
	Headcount int
}

// Matches は同じ入力に対する取得かどうかを返します
func (q AvailabilityQuery) Matches(other AvailabilityQuery) bool {
	return model.SameDay(q.Date, other.Date) &&
		q.StaffMode == other.StaffMode &&
		q.Headcount == other.Headcount
}

func (q AvailabilityQuery) String() string {
	return fmt.Sprintf("%s/%s/%d", q.Date.Format("02/01/2006"), q.StaffMode, q.Headcount)
}

// FormState は1回のフォーム操作(新規作成または変更)の状態を表す値オブジェクトです
// 状態遷移は On* 関数で行い、各関数は新しい FormState を返します
type FormState struct {
	// Original は変更対象の予約です。新規作成時はnil
	Original *model.Reservation

	Date         time.Time
	StaffMode    model.StaffMode
	Guests       []model.Guest
	Slots        []model.TimeSlot
	SelectedSlot *model.TimeSlot

	// PreferredSlot は変更時に元の時刻を再選択するために保持します
	PreferredSlot string

	Customer model.Customer
	Note     string
	WalkIn   bool
	Status   model.ReservationStatus

	MaxGroupSize int
	Phase        FormPhase
	LastError    error
}

// NewFormState は新規予約用のフォーム状態を作成します
func NewFormState(date time.Time, maxGroupSize int) FormState {
	return FormState{
		Date:         model.DateOnly(date),
		StaffMode:    model.AnyStaff(),
		Guests:       []model.Guest{{}},
		Status:       model.ReservationStatusPending,
		MaxGroupSize: maxGroupSize,
		Phase:        PhaseEditing,
	}
}

// EditFormState は既存予約の変更用のフォーム状態を作成します
// スタッフは指名なしで開き、元の担当者は割り当て時に可能な限り維持されます
func EditFormState(r model.Reservation, maxGroupSize int, loc *time.Location) FormState {
	original := r.Clone()

	bookingTime := r.BookingTime
	if loc != nil {
		bookingTime = bookingTime.In(loc)
	}

	guests := model.CloneGuests(r.Guests)
	if len(guests) == 0 {
		guests = []model.Guest{{}}
	}

	status := r.Status
	if status == "" {
		status = model.ReservationStatusPending
	}

	return FormState{
		Original:      &original,
		Date:          model.DateOnly(bookingTime),
		StaffMode:     model.AnyStaff(),
		Guests:        guests,
		PreferredSlot: model.FormatClock(bookingTime.Hour(), bookingTime.Minute()),
		Customer:      r.Customer,
		Note:          r.Note,
		WalkIn:        r.WalkInBooking,
		Status:        status,
		MaxGroupSize:  maxGroupSize,
		Phase:         PhaseEditing,
	}
}

// IsEdit は既存予約の変更かどうかを返します
func (s FormState) IsEdit() bool {
	return s.Original != nil
}

// Closed は送信成功またはキャンセルで閉じたかどうかを返します
func (s FormState) Closed() bool {
	return s.Phase == PhaseSubmittedSuccess || s.Phase == PhaseCancelled
}

// CurrentQuery は現在の入力に対応する空き状況の取得条件を返します
func (s FormState) CurrentQuery() AvailabilityQuery {
	return AvailabilityQuery{
		Date:      s.Date,
		StaffMode: s.StaffMode,
		Headcount: len(s.Guests),
	}
}

// Clone はスライスを共有しないコピーを返します
func (s FormState) Clone() FormState {
	out := s
	out.Guests = model.CloneGuests(s.Guests)
	if s.Slots != nil {
		out.Slots = append([]model.TimeSlot(nil), s.Slots...)
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		out.SelectedSlot = &slot
	}
	if s.Original != nil {
		original := s.Original.Clone()
		out.Original = &original
	}
	return out
}

func (s FormState) touched() FormState {
	out := s.Clone()
	if out.Phase == PhaseSubmittedFailure {
		out.Phase = PhaseEditing
	}
	return out
}

func (s FormState) invalidated() FormState {
	out := s.touched()
	out.SelectedSlot = nil
	out.Slots = nil
	out.PreferredSlot = ""
	return out
}

// OnDateChange は日付を変更し、選択中の枠を破棄します
func OnDateChange(s FormState, date time.Time) (FormState, AvailabilityQuery) {
	out := s.invalidated()
	out.Date = model.DateOnly(date)
	return out, out.CurrentQuery()
}

// OnStaffModeChange はスタッフの選択を変更し、選択中の枠を破棄します
// 複数名の予約では特定スタッフを指名できないため指名なしになります
func OnStaffModeChange(s FormState, mode model.StaffMode) (FormState, AvailabilityQuery) {
	out := s.invalidated()
	if len(out.Guests) > 1 {
		mode = model.AnyStaff()
	}
	out.StaffMode = mode
	return out, out.CurrentQuery()
}

// OnGuestCountChange は人数を変更します
// 人数は 1..MaxGroupSize に丸め、スタッフは指名なしに戻し、選択中の枠を破棄します
func OnGuestCountChange(s FormState, count int) (FormState, AvailabilityQuery) {
	out := s.invalidated()

	if count < 1 {
		count = 1
	}
	if out.MaxGroupSize > 0 && count > out.MaxGroupSize {
		count = out.MaxGroupSize
	}

	switch {
	case count < len(out.Guests):
		out.Guests = out.Guests[:count]
	case count > len(out.Guests):
		for len(out.Guests) < count {
			out.Guests = append(out.Guests, model.Guest{})
		}
	}

	out.StaffMode = model.AnyStaff()
	return out, out.CurrentQuery()
}

// ApplyAvailability は空き状況のレスポンスをフォームに反映します
// 発行時の条件が現在の入力と一致しない、またはフォームが閉じている場合は破棄し、falseを返します
func ApplyAvailability(s FormState, q AvailabilityQuery, raw model.AvailabilityMap, now time.Time) (FormState, bool) {
	if s.Closed() || !s.CurrentQuery().Matches(q) {
		return s, false
	}

	out := s.Clone()
	out.Slots = FilterSlots(raw, out.Date, now, q.Headcount)

	if out.SelectedSlot != nil {
		if slot, ok := FindSlot(out.Slots, out.SelectedSlot.Time); ok {
			out.SelectedSlot = &slot
		} else {
			out.SelectedSlot = nil
		}
	}
	if out.SelectedSlot == nil && out.PreferredSlot != "" {
		if slot, ok := FindSlot(out.Slots, out.PreferredSlot); ok {
			out.SelectedSlot = &slot
		}
	}
	return out, true
}

// OnSlotSelect は時間枠を選択します
func OnSlotSelect(s FormState, clock string) (FormState, error) {
	slot, ok := FindSlot(s.Slots, clock)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrSlotNotOffered, clock)
	}
	out := s.touched()
	out.SelectedSlot = &slot
	out.PreferredSlot = ""
	return out, nil
}

// OnGuestServicesChange はゲストの施術を差し替え、合計を再計算します
func OnGuestServicesChange(s FormState, index int, services []model.GuestService) (FormState, error) {
	if index < 0 || index >= len(s.Guests) {
		return s, fmt.Errorf("guest index %d out of range (guests: %d)", index, len(s.Guests))
	}
	out := s.touched()
	g := out.Guests[index]
	g.Services = model.Guest{Services: services}.Clone().Services
	g.RecalculateTotals()
	out.Guests[index] = g
	return out, nil
}

// OnGuestNameChange はゲストの表示名を変更します
func OnGuestNameChange(s FormState, index int, name string) (FormState, error) {
	if index < 0 || index >= len(s.Guests) {
		return s, fmt.Errorf("guest index %d out of range (guests: %d)", index, len(s.Guests))
	}
	out := s.touched()
	out.Guests[index].DisplayName = name
	return out, nil
}

// OnCustomerChange は予約者を変更します
// 変更時は元の顧客IDを維持します
func OnCustomerChange(s FormState, c model.Customer) FormState {
	out := s.touched()
	if c.ID == nil && s.Original != nil {
		c.ID = s.Original.Customer.ID
	}
	out.Customer = c
	return out
}

func OnNoteChange(s FormState, note string) FormState {
	out := s.touched()
	out.Note = note
	return out
}

func OnWalkInChange(s FormState, walkIn bool) FormState {
	out := s.touched()
	out.WalkIn = walkIn
	return out
}

// OnStatusChange はステータスを明示的に変更します
func OnStatusChange(s FormState, status model.ReservationStatus) FormState {
	out := s.touched()
	out.Status = status
	return out
}

// OnCancel はフォームを破棄します
func OnCancel(s FormState) FormState {
	out := s.Clone()
	out.Phase = PhaseCancelled
	return out
}

// PrepareSubmission は入力チェック、スタッフ割り当て、送信内容の組み立てを行います
// フォームの状態は変更しません
func PrepareSubmission(s FormState, resolver *Resolver, loc *time.Location) (model.Reservation, error) {
	if s.Closed() {
		return model.Reservation{}, ErrFormClosed
	}
	if err := ValidateSubmission(s); err != nil {
		return model.Reservation{}, err
	}

	var previous []model.Guest
	if s.Original != nil {
		previous = s.Original.Guests
	}

	guests, err := resolver.Resolve(*s.SelectedSlot, s.StaffMode, s.Guests, previous)
	if err != nil {
		return model.Reservation{}, err
	}
	for i := range guests {
		guests[i].RecalculateTotals()
	}

	if loc == nil {
		loc = s.Date.Location()
	}
	bookingTime, err := model.CombineDateAndClock(s.Date, s.SelectedSlot.Time, loc)
	if err != nil {
		return model.Reservation{}, err
	}

	customer := s.Customer
	customer.Phone = NormalizePhone(customer.Phone)

	r := model.Reservation{
		Customer:      customer,
		Date:          model.DateOnly(bookingTime),
		BookingTime:   bookingTime,
		Status:        s.Status,
		Note:          s.Note,
		Guests:        guests,
		WalkInBooking: s.WalkIn,
	}

	if s.Original != nil {
		original := s.Original.Clone()
		r.ID = original.ID
		r.CreatedAt = original.CreatedAt
		if r.Customer.ID == nil {
			r.Customer.ID = original.Customer.ID
		}
	}
	return r, nil
}

// OnSubmitResult は送信結果を反映します
// 失敗時は入力内容をそのまま残し、再送信できる状態にします
func OnSubmitResult(s FormState, saved *model.Reservation, err error) FormState {
	out := s.Clone()
	if err != nil {
		out.Phase = PhaseSubmittedFailure
		out.LastError = err
		return out
	}
	out.Phase = PhaseSubmittedSuccess
	out.LastError = nil
	if saved != nil {
		r := saved.Clone()
		out.Original = &r
	}
	return out
}
