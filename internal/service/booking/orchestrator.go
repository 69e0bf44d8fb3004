package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uma-arai/sbcntr-booking/internal/common/utils"
	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// AvailabilityService は日付・スタッフ指定ごとの空き状況を返します
type AvailabilityService interface {
	GetAvailability(ctx context.Context, date time.Time, mode model.StaffMode) (model.AvailabilityMap, error)
}

// StaffDirectory はスタッフの一覧を返します
type StaffDirectory interface {
	ListStaff(ctx context.Context, activeOnly bool) ([]model.Staff, error)
}

// ReservationStore は予約を保存します
type ReservationStore interface {
	CreateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
	UpdateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
}

// EventPublisher は予約イベントを通知します
type EventPublisher interface {
	Publish(ctx context.Context, event model.ReservationEvent) error
}

// Options は Orchestrator の設定です
type Options struct {
	Location     *time.Location
	MaxGroupSize int
	Resolver     *Resolver
	Publisher    EventPublisher
	Logger       *logrus.Entry
	Now          func() time.Time
}

// Orchestrator は予約フォームのセッションを作成します
type Orchestrator struct {
	availability AvailabilityService
	staff        StaffDirectory
	store        ReservationStore
	publisher    EventPublisher
	resolver     *Resolver
	loc          *time.Location
	maxGroupSize int
	log          *logrus.Entry
	now          func() time.Time
}

const defaultMaxGroupSize = 5

// NewOrchestrator は新しいOrchestratorを作成します
func NewOrchestrator(availability AvailabilityService, staff StaffDirectory, store ReservationStore, opts Options) *Orchestrator {
	o := &Orchestrator{
		availability: availability,
		staff:        staff,
		store:        store,
		publisher:    opts.Publisher,
		resolver:     opts.Resolver,
		loc:          opts.Location,
		maxGroupSize: opts.MaxGroupSize,
		log:          opts.Logger,
		now:          opts.Now,
	}
	if o.resolver == nil {
		o.resolver = NewResolver(nil)
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.maxGroupSize < 1 {
		o.maxGroupSize = defaultMaxGroupSize
	}
	if o.log == nil {
		o.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func (o *Orchestrator) currentTime() time.Time {
	return o.now().In(o.loc)
}

// Open はフォームを開き、スタッフ一覧と初期の空き状況を読み込みます
// existing がnilの場合は新規作成、それ以外は既存予約の変更になります
func (o *Orchestrator) Open(ctx context.Context, existing *model.Reservation) (*Session, error) {
	ctx, done := utils.StartSubsegment(ctx, "Orchestrator.Open")

	staff, err := o.staff.ListStaff(ctx, true)
	if err != nil {
		err = fmt.Errorf("failed to list staff: %w", err)
		done(err)
		return nil, err
	}

	options := make([]model.Staff, 0, len(staff)+1)
	options = append(options, model.AnyProfessional())
	for _, st := range staff {
		if st.ID == model.AnyProfessionalID {
			continue
		}
		options = append(options, st)
	}

	var state FormState
	log := o.log
	if existing == nil {
		state = NewFormState(o.currentTime(), o.maxGroupSize)
		log = log.WithField("mode", "create")
	} else {
		state = EditFormState(*existing, o.maxGroupSize, o.loc)
		log = log.WithField("mode", "update")
		if existing.ID != nil {
			log = log.WithField("reservation_id", *existing.ID)
		}
	}

	s := &Session{
		o:     o,
		state: state,
		staff: options,
		log:   log,
	}

	err = s.fetch(ctx, state.CurrentQuery())
	done(err)
	if err != nil {
		// 空き状況の取得に失敗してもフォームは開き、再取得できるようにする
		log.WithError(err).Warn("initial availability lookup failed")
	}
	return s, nil
}

// Session は1つの予約フォームの操作を表します
// 各操作はロックで直列化され、空き状況の取得中はロックを保持しません
type Session struct {
	o   *Orchestrator
	log *logrus.Entry

	mu         sync.Mutex
	state      FormState
	staff      []model.Staff
	submitting bool
}

// State は現在のフォーム状態のコピーを返します
func (s *Session) State() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// StaffOptions は選択肢となるスタッフ一覧を返します。先頭は指名なしです
func (s *Session) StaffOptions() []model.Staff {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Staff(nil), s.staff...)
}

func (s *Session) update(fn func(FormState) (FormState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Closed() {
		return ErrFormClosed
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Session) updateAndFetch(ctx context.Context, fn func(FormState) (FormState, AvailabilityQuery)) error {
	var q AvailabilityQuery
	if err := s.update(func(st FormState) (FormState, error) {
		var next FormState
		next, q = fn(st)
		return next, nil
	}); err != nil {
		return err
	}
	return s.fetch(ctx, q)
}

// fetch は空き状況を取得し、発行時の条件がまだ有効な場合だけ反映します
func (s *Session) fetch(ctx context.Context, q AvailabilityQuery) error {
	log := s.log.WithField("query", q.String())

	start := time.Now()
	raw, err := s.o.availability.GetAvailability(ctx, q.Date, q.StaffMode)
	availabilityFetchSeconds.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if s.state.Closed() || !s.state.CurrentQuery().Matches(q) {
			availabilityResponsesTotal.WithLabelValues(outcomeStale).Inc()
			log.WithError(err).Debug("discarded failed availability lookup for outdated selection")
			return nil
		}
		availabilityResponsesTotal.WithLabelValues(outcomeError).Inc()
		return fmt.Errorf("failed to get availability: %w", err)
	}

	next, applied := ApplyAvailability(s.state, q, raw, s.o.currentTime())
	if !applied {
		availabilityResponsesTotal.WithLabelValues(outcomeStale).Inc()
		log.Debug("discarded availability response for outdated selection")
		return nil
	}
	availabilityResponsesTotal.WithLabelValues(outcomeApplied).Inc()
	s.state = next
	log.WithField("slots", len(next.Slots)).Debug("availability applied")
	return nil
}

// SetDate は日付を変更し、空き状況を取得し直します
func (s *Session) SetDate(ctx context.Context, date time.Time) error {
	return s.updateAndFetch(ctx, func(st FormState) (FormState, AvailabilityQuery) {
		return OnDateChange(st, date.In(s.o.loc))
	})
}

// SetStaffMode はスタッフの指定を変更し、空き状況を取得し直します
func (s *Session) SetStaffMode(ctx context.Context, mode model.StaffMode) error {
	return s.updateAndFetch(ctx, func(st FormState) (FormState, AvailabilityQuery) {
		return OnStaffModeChange(st, mode)
	})
}

// SetGuestCount は人数を変更し、空き状況を取得し直します
func (s *Session) SetGuestCount(ctx context.Context, count int) error {
	return s.updateAndFetch(ctx, func(st FormState) (FormState, AvailabilityQuery) {
		return OnGuestCountChange(st, count)
	})
}

// Refresh は現在の条件で空き状況を取得し直します
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Closed() {
		s.mu.Unlock()
		return ErrFormClosed
	}
	q := s.state.CurrentQuery()
	s.mu.Unlock()
	return s.fetch(ctx, q)
}

// SelectSlot は時間枠を選択します
func (s *Session) SelectSlot(clock string) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnSlotSelect(st, clock)
	})
}

// SetGuestServices はゲストの施術を変更します
func (s *Session) SetGuestServices(index int, services []model.GuestService) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnGuestServicesChange(st, index, services)
	})
}

// SetGuestName はゲストの表示名を変更します
func (s *Session) SetGuestName(index int, name string) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnGuestNameChange(st, index, name)
	})
}

func (s *Session) SetCustomer(c model.Customer) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnCustomerChange(st, c), nil
	})
}

func (s *Session) SetNote(note string) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnNoteChange(st, note), nil
	})
}

func (s *Session) SetWalkIn(walkIn bool) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnWalkInChange(st, walkIn), nil
	})
}

func (s *Session) SetStatus(status model.ReservationStatus) error {
	return s.update(func(st FormState) (FormState, error) {
		return OnStatusChange(st, status), nil
	})
}

// Cancel はフォームを閉じます。以降の空き状況レスポンスは破棄されます
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Closed() {
		return
	}
	s.state = OnCancel(s.state)
	s.log.Info("reservation form cancelled")
}

// Submit は予約を作成または更新します
// 入力エラーとスタッフ不足の場合は保存を呼び出さずにエラーを返します
// 保存に失敗した場合は入力を残したまま *PersistenceError を返します
func (s *Session) Submit(ctx context.Context) (model.Reservation, error) {
	ctx, done := utils.StartSubsegment(ctx, "Session.Submit")

	s.mu.Lock()
	if s.state.Closed() {
		s.mu.Unlock()
		done(ErrFormClosed)
		return model.Reservation{}, ErrFormClosed
	}
	if s.submitting {
		s.mu.Unlock()
		done(ErrSubmitInProgress)
		return model.Reservation{}, ErrSubmitInProgress
	}

	mode := submitMode(s.state)
	payload, err := PrepareSubmission(s.state, s.o.resolver, s.o.loc)
	if err != nil {
		s.state = OnSubmitResult(s.state, nil, err)
		s.mu.Unlock()

		var verr *ValidationError
		var serr *InsufficientStaffError
		switch {
		case errors.As(err, &verr):
			submissionsTotal.WithLabelValues(mode, resultValidation).Inc()
			s.log.WithField("fields", verr.Fields).Info("reservation rejected by validation")
		case errors.As(err, &serr):
			submissionsTotal.WithLabelValues(mode, resultStaff).Inc()
			s.log.WithFields(logrus.Fields{
				"required":  serr.Required,
				"available": serr.Available,
			}).Info("not enough staff for group reservation")
		default:
			submissionsTotal.WithLabelValues(mode, resultFailure).Inc()
		}
		done(err)
		return model.Reservation{}, err
	}
	s.submitting = true
	s.mu.Unlock()

	saved, err := s.persist(ctx, mode, payload)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.state = OnSubmitResult(s.state, nil, err)
	} else {
		s.state = OnSubmitResult(s.state, &saved, nil)
	}
	s.mu.Unlock()

	if err != nil {
		submissionsTotal.WithLabelValues(mode, resultFailure).Inc()
		s.log.WithError(err).Error("failed to save reservation")
		done(err)
		return model.Reservation{}, err
	}

	submissionsTotal.WithLabelValues(mode, resultSuccess).Inc()
	entry := s.log
	if saved.ID != nil {
		entry = entry.WithField("reservation_id", *saved.ID)
	}
	entry.WithField("booking_time", saved.BookingTime.Format(time.RFC3339)).Info("reservation saved")

	s.publish(ctx, mode, saved)
	done(nil)
	return saved, nil
}

func (s *Session) persist(ctx context.Context, mode string, payload model.Reservation) (model.Reservation, error) {
	var (
		saved model.Reservation
		err   error
	)
	if mode == "update" {
		saved, err = s.o.store.UpdateReservation(ctx, payload)
	} else {
		saved, err = s.o.store.CreateReservation(ctx, payload)
	}
	if err != nil {
		return model.Reservation{}, &PersistenceError{Op: mode, Err: err}
	}
	return saved, nil
}

// publish は保存済みの予約をイベントとして通知します。失敗しても予約は成功扱いです
func (s *Session) publish(ctx context.Context, mode string, saved model.Reservation) {
	if s.o.publisher == nil {
		return
	}
	eventType := model.ReservationEventCreated
	if mode == "update" {
		eventType = model.ReservationEventUpdated
	}
	event := model.NewReservationEvent(eventType, saved, s.o.now())
	if err := s.o.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("failed to publish reservation event")
	}
}
