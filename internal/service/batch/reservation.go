package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/uma-arai/sbcntr-booking/internal/cache"
	"github.com/uma-arai/sbcntr-booking/internal/client"
	"github.com/uma-arai/sbcntr-booking/internal/common/config"
	"github.com/uma-arai/sbcntr-booking/internal/common/database"
	"github.com/uma-arai/sbcntr-booking/internal/common/utils"
	"github.com/uma-arai/sbcntr-booking/internal/model"
	"github.com/uma-arai/sbcntr-booking/internal/mq"
	"github.com/uma-arai/sbcntr-booking/internal/repository"
	"github.com/uma-arai/sbcntr-booking/internal/service/booking"
)

// ReservationLoader は変更対象の予約を読み込みます
type ReservationLoader interface {
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
}

// SFNClient はStep Functionsのタスク結果通知です
type SFNClient interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
}

// staffInvalidator はキャッシュしたスタッフ名簿を破棄します
type staffInvalidator interface {
	Invalidate(ctx context.Context) error
}

type reservationStore interface {
	booking.ReservationStore
	ReservationLoader
}

// Result は1件の予約リクエストの処理結果です
type Result struct {
	RequestID   string             `json:"request_id"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
	Error       string             `json:"error,omitempty"`

	updated bool
	err     error
}

// Succeeded は予約が保存されたかどうかを返します
func (r Result) Succeeded() bool {
	return r.err == nil
}

// Summary はバッチ全体の件数です
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ReservationBatchService は予約リクエストを予約フォームに通して作成・変更するバッチです
type ReservationBatchService struct {
	args         []model.BookingRequest
	orchestrator *booking.Orchestrator
	loader       ReservationLoader
	staffCache   staffInvalidator
	sfnClient    SFNClient
	cfg          *config.Config
	loc          *time.Location
	log          *logrus.Entry
	closers      []io.Closer
	now          func() time.Time
}

// NewReservationBatchService は設定に従って依存先を組み立て、新しいReservationBatchServiceを作成します
func NewReservationBatchService(cfg *config.Config, sfnClient SFNClient, log *logrus.Entry) (*ReservationBatchService, error) {
	apiCfg := client.Config{
		BaseURL: cfg.API.BaseURL,
		User:    cfg.API.User,
		Pass:    cfg.API.Pass,
		Timeout: cfg.API.Timeout,
	}

	s := newReservationBatchService(cfg, nil, nil, sfnClient, log)

	var (
		staff booking.StaffDirectory
		store reservationStore
	)
	switch cfg.Backend {
	case config.BackendDB:
		db, err := database.NewDB(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}
		s.closers = append(s.closers, db)

		// database.DBをrepository.DBに変換
		repoDB := repository.NewDB(db.DB, log)
		staff = repository.NewStaffRepository(repoDB)
		store = repository.NewReservationRepository(repoDB, cfg.Location())
	default:
		staff = client.NewStaffClient(apiCfg)
		store = client.NewReservationClient(apiCfg)
	}

	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rdb)
		staffCache := cache.NewStaffCache(rdb, staff, cfg.Redis.StaffTTL, log)
		s.staffCache = staffCache
		staff = staffCache
	}

	var publisher booking.EventPublisher
	if cfg.AMQP.URL != "" {
		p, err := mq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		s.closers = append(s.closers, p)
		publisher = p
	}

	s.loader = store
	s.orchestrator = booking.NewOrchestrator(client.NewAvailabilityClient(apiCfg), staff, store, booking.Options{
		Location:     cfg.Location(),
		MaxGroupSize: cfg.Store.MaxGroupSize,
		Publisher:    publisher,
		Logger:       log,
	})
	return s, nil
}

func newReservationBatchService(cfg *config.Config, o *booking.Orchestrator, loader ReservationLoader, sfnClient SFNClient, log *logrus.Entry) *ReservationBatchService {
	return &ReservationBatchService{
		orchestrator: o,
		loader:       loader,
		sfnClient:    sfnClient,
		cfg:          cfg,
		loc:          cfg.Location(),
		log:          log,
		now:          time.Now,
	}
}

// Close は終了処理を行います
func (s *ReservationBatchService) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// SetArgs は予約バッチ処理の引数を設定します
func (s *ReservationBatchService) SetArgs(args []model.BookingRequest) {
	s.args = args
}

// ParseArgs はJSON配列の予約リクエストを読み込みます
// request_id がないリクエストにはUUIDを振ります
func ParseArgs(data []byte) ([]model.BookingRequest, error) {
	var args []model.BookingRequest
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("failed to parse booking requests: %w", err)
	}
	for i := range args {
		if args[i].RequestID == "" {
			args[i].RequestID = uuid.NewString()
		}
	}
	return args, nil
}

// Run は予約バッチ処理を実行します
// 個々のリクエストの失敗は通知として返し、バッチ自体は失敗させません
func (s *ReservationBatchService) Run(ctx context.Context) error {
	ctx, done := utils.StartSubsegment(ctx, "ReservationBatchService.Run")

	startTime := time.Now()

	results := s.processRequests(ctx)
	summary := summarize(results)

	if err := s.sendTaskSuccess(ctx, results, summary); err != nil {
		err = utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
		done(err)
		return err
	}

	duration := time.Since(startTime)
	utils.AddMetadata(ctx, "duration", duration.String())
	done(nil)

	s.log.WithFields(logrus.Fields{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"duration":  duration.String(),
	}).Info("reservation batch process completed")
	return nil
}

func (s *ReservationBatchService) processRequests(ctx context.Context) []Result {
	results := make([]Result, 0, len(s.args))
	for _, req := range s.args {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(req, err))
			continue
		}

		log := s.log.WithField("request_id", req.RequestID)
		saved, err := s.processRequest(ctx, req)
		if err != nil {
			log.WithError(err).Warn("booking request failed")
			s.invalidateStaff(ctx, err)
			results = append(results, failed(req, err))
			continue
		}

		if saved.ID != nil {
			log = log.WithField("reservation_id", *saved.ID)
		}
		log.Info("booking request completed")
		results = append(results, Result{RequestID: req.RequestID, Reservation: &saved, updated: req.ReservationID != nil})
	}
	return results
}

// invalidateStaff は保存に失敗した場合にスタッフ名簿のキャッシュを破棄し、
// 次のリクエストで名簿を取り直します
func (s *ReservationBatchService) invalidateStaff(ctx context.Context, cause error) {
	var perr *booking.PersistenceError
	if s.staffCache == nil || !errors.As(cause, &perr) {
		return
	}
	if err := s.staffCache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate staff cache")
	}
}

func failed(req model.BookingRequest, err error) Result {
	return Result{RequestID: req.RequestID, Error: err.Error(), err: err}
}

// processRequest は1件のリクエストを予約フォームの操作に置き換えて送信します
func (s *ReservationBatchService) processRequest(ctx context.Context, req model.BookingRequest) (model.Reservation, error) {
	if err := req.Check(); err != nil {
		return model.Reservation{}, err
	}

	var existing *model.Reservation
	if req.ReservationID != nil {
		r, err := s.loader.GetReservation(ctx, *req.ReservationID)
		if err != nil {
			return model.Reservation{}, fmt.Errorf("failed to load reservation %d: %w", *req.ReservationID, err)
		}
		existing = &r
	}

	session, err := s.orchestrator.Open(ctx, existing)
	if err != nil {
		return model.Reservation{}, err
	}

	saved, err := s.fillAndSubmit(ctx, session, req)
	if err != nil {
		session.Cancel()
		return model.Reservation{}, err
	}
	return saved, nil
}

func (s *ReservationBatchService) fillAndSubmit(ctx context.Context, session *booking.Session, req model.BookingRequest) (model.Reservation, error) {
	if len(req.Guests) > 0 && len(req.Guests) != len(session.State().Guests) {
		if err := session.SetGuestCount(ctx, len(req.Guests)); err != nil {
			return model.Reservation{}, err
		}
	}
	if req.StaffID != nil {
		if len(req.Guests) > 1 {
			s.log.WithFields(logrus.Fields{
				"request_id": req.RequestID,
				"staff_id":   *req.StaffID,
				"guests":     len(req.Guests),
			}).Warn("staff_id is ignored for group bookings, assigning any professional")
		}
		if err := session.SetStaffMode(ctx, req.StaffMode()); err != nil {
			return model.Reservation{}, err
		}
	}
	if req.Date != "" {
		date, err := req.ParseDate(s.loc)
		if err != nil {
			return model.Reservation{}, err
		}
		if !model.SameDay(date, session.State().Date) {
			if err := session.SetDate(ctx, date); err != nil {
				return model.Reservation{}, err
			}
		}
	}

	for i, g := range req.Guests {
		if err := session.SetGuestName(i, g.DisplayName); err != nil {
			return model.Reservation{}, err
		}
		if err := session.SetGuestServices(i, g.GuestServices()); err != nil {
			return model.Reservation{}, err
		}
	}

	if req.Time != "" {
		if err := session.SelectSlot(req.Time); err != nil {
			return model.Reservation{}, err
		}
	}
	if req.Customer != nil {
		if err := session.SetCustomer(*req.Customer); err != nil {
			return model.Reservation{}, err
		}
	}
	if req.Note != nil {
		if err := session.SetNote(*req.Note); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := session.SetWalkIn(req.WalkInBooking); err != nil {
		return model.Reservation{}, err
	}
	if req.Status != "" {
		if err := session.SetStatus(model.ReservationStatus(req.Status)); err != nil {
			return model.Reservation{}, err
		}
	}

	return session.Submit(ctx)
}

func summarize(results []Result) Summary {
	sum := Summary{Total: len(results)}
	for _, r := range results {
		if r.Succeeded() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	return sum
}

// notifications は処理結果を後続ステートへの通知に変換します
func (s *ReservationBatchService) notifications(results []Result) []model.Notification {
	now := s.now()
	out := make([]model.Notification, 0, len(results))
	for _, r := range results {
		if !r.Succeeded() {
			out = append(out, model.NewBookingFailedNotification(r.RequestID, r.err, now))
			continue
		}
		eventType := model.ReservationEventCreated
		if r.updated {
			eventType = model.ReservationEventUpdated
		}
		n := model.NewReservationNotification(model.NewReservationEvent(eventType, *r.Reservation, now))
		n.Data["request_id"] = r.RequestID
		out = append(out, n)
	}
	return out
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知し、処理結果を返却します
func (s *ReservationBatchService) sendTaskSuccess(ctx context.Context, results []Result, summary Summary) error {
	// 通知をJSONに変換
	output, err := json.Marshal(map[string]any{
		"notifications": s.notifications(results),
		"summary":       summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notifications: %w", err)
	}

	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		s.log.WithField("output", string(output)).Info("local environment detected, skipping Step Functions task success notification")
		return nil
	}

	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return errors.New("SFN_TASK_TOKEN is not set in config")
	}

	_, err = s.sfnClient.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	s.log.WithField("summary", summary).Info("sent task success")
	return nil
}
