package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"zenstay/internal/infra/persistence/memory"
	"zenstay/internal/occupancy"
	"zenstay/pkg/domain"
)

// ErrInvalidVacancy is returned for a vacancy policy other than keep or reset.
var ErrInvalidVacancy = errors.New("invalid vacancy policy")

// Service exposes the front desk commands. Every command runs the occupancy
// engine inside one store transaction, so the rules engine sees the result
// before anything is committed.
type Service struct {
	store    domain.PersistentStore
	logger   Logger
	clock    Clock
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	notifier Notifier
	policy   occupancy.Policy
	newID    func() string

	persistFailures atomic.Int64
}

// Option configures optional Service behaviour.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger   Logger
	clock    Clock
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	notifier Notifier
	policy   occupancy.Policy
	newID    func() string
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		policy:  occupancy.Strict(),
		newID:   uuid.NewString,
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for audit entries and reports.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder sets the audit trail sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithNotifier sets where command notifications are delivered. Without it
// notifications are written to the logger.
func WithNotifier(notifier Notifier) Option {
	return func(o *serviceOptions) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithPolicy sets the occupancy policy applied to every command.
func WithPolicy(policy occupancy.Policy) Option {
	return func(o *serviceOptions) {
		o.policy = policy
	}
}

// WithIDGenerator overrides the generator used for guest and batch ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *serviceOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.notifier == nil {
		cfg.notifier = loggingNotifier{logger: cfg.logger}
	}
	return &Service{
		store:    store,
		logger:   cfg.logger,
		clock:    cfg.clock,
		audit:    cfg.audit,
		metrics:  cfg.metrics,
		tracer:   cfg.tracer,
		notifier: cfg.notifier,
		policy:   cfg.policy,
		newID:    cfg.newID,
	}
}

// NewInMemoryService creates a service over a seeded in-memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Policy returns the occupancy policy in effect.
func (s *Service) Policy() occupancy.Policy { return s.policy }

// PersistFailures counts committed commands whose snapshot write failed.
func (s *Service) PersistFailures() int64 { return s.persistFailures.Load() }

// AddBooking registers a guest for the beds listed in the draft.
func (s *Service) AddBooking(ctx context.Context, draft domain.GuestDraft) (occupancy.Outcome, domain.Result, error) {
	guestID := "g-" + s.newID()
	return s.execute(ctx, "add_booking", guestID, func(domain.State) occupancy.Command {
		return occupancy.BookGuest{GuestID: guestID, Draft: draft}
	})
}

// UpdateBed applies a partial bed update. Marking an occupied bed available
// checks out its occupant.
func (s *Service) UpdateBed(ctx context.Context, bedID string, patch domain.BedPatch) (occupancy.Outcome, domain.Result, error) {
	return s.execute(ctx, "update_bed", bedID, func(state domain.State) occupancy.Command {
		return occupancy.ResolveBedUpdate(state, bedID, patch)
	})
}

// SetBedFields merges patch into the bed without checkout inference.
func (s *Service) SetBedFields(ctx context.Context, bedID string, patch domain.BedPatch) (occupancy.Outcome, domain.Result, error) {
	return s.execute(ctx, "set_bed_fields", bedID, func(domain.State) occupancy.Command {
		return occupancy.SetBedFields{BedID: bedID, Patch: patch}
	})
}

// CheckoutGuest releases the guest's beds. An empty vacancy uses the policy default.
func (s *Service) CheckoutGuest(ctx context.Context, guestID string, vacancy occupancy.VacancyPolicy) (occupancy.Outcome, domain.Result, error) {
	if !vacancy.Valid() {
		return occupancy.Outcome{}, domain.Result{}, fmt.Errorf("%w: %q", ErrInvalidVacancy, vacancy)
	}
	return s.execute(ctx, "checkout_guest", guestID, func(domain.State) occupancy.Command {
		return occupancy.CheckoutGuest{GuestID: guestID, Vacancy: vacancy}
	})
}

// ExtendStay moves the guest's departure by days and bills them.
func (s *Service) ExtendStay(ctx context.Context, guestID string, days int) (occupancy.Outcome, domain.Result, error) {
	return s.execute(ctx, "extend_stay", guestID, func(domain.State) occupancy.Command {
		return occupancy.ExtendStay{GuestID: guestID, Days: days}
	})
}

// BatchAddRooms creates count rooms numbered from start.
func (s *Service) BatchAddRooms(ctx context.Context, start, count, bedsPerRoom int, roomType domain.RoomType) (occupancy.Outcome, domain.Result, error) {
	batchID := s.newID()
	return s.execute(ctx, "batch_add_rooms", batchID, func(domain.State) occupancy.Command {
		return occupancy.BatchAddRooms{
			BatchID:     batchID,
			StartNumber: start,
			Count:       count,
			BedsPerRoom: bedsPerRoom,
			Type:        roomType,
		}
	})
}

// SaveSettings replaces the system settings.
func (s *Service) SaveSettings(ctx context.Context, settings domain.SystemSettings) (occupancy.Outcome, domain.Result, error) {
	return s.execute(ctx, "save_settings", string(domain.EntitySettings), func(domain.State) occupancy.Command {
		return occupancy.SaveSettings{Settings: settings}
	})
}

// DeleteRoom removes a room and its beds.
func (s *Service) DeleteRoom(ctx context.Context, roomID string) (occupancy.Outcome, domain.Result, error) {
	return s.execute(ctx, "delete_room", roomID, func(domain.State) occupancy.Command {
		return occupancy.DeleteRoom{RoomID: roomID}
	})
}

// RecomputeRoomPolicy re-derives the room's gender policy from its occupants.
func (s *Service) RecomputeRoomPolicy(ctx context.Context, roomID string, vacancy occupancy.VacancyPolicy) (occupancy.Outcome, domain.Result, error) {
	if !vacancy.Valid() {
		return occupancy.Outcome{}, domain.Result{}, fmt.Errorf("%w: %q", ErrInvalidVacancy, vacancy)
	}
	return s.execute(ctx, "recompute_room_policy", roomID, func(domain.State) occupancy.Command {
		return occupancy.RecomputeRoomPolicy{RoomID: roomID, Vacancy: vacancy}
	})
}

// State returns a copy of the current state.
func (s *Service) State() domain.State { return s.store.State() }

// Rooms returns the rooms in display order.
func (s *Service) Rooms() []domain.Room { return s.store.ListRooms() }

// Guests returns every guest record, including checked-out ones.
func (s *Service) Guests() []domain.Guest { return s.store.ListGuests() }

// Settings returns the current system settings.
func (s *Service) Settings() domain.SystemSettings { return s.store.Settings() }

// Report builds the dashboard read model at the service clock's time.
func (s *Service) Report() Report {
	return BuildReport(s.store.State(), s.clock.Now())
}

// Verify evaluates the registered rules against the committed state.
func (s *Service) Verify(ctx context.Context) (domain.Result, error) {
	engine := s.rulesEngine()
	var res domain.Result
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		res, err = engine.Evaluate(ctx, view, nil)
		return err
	})
	return res, err
}

// Restore replaces the whole state, for example from an archived snapshot.
// A state with blocking violations is refused.
func (s *Service) Restore(ctx context.Context, state domain.State) (domain.Result, error) {
	replacer, ok := s.store.(interface {
		Replace(ctx context.Context, state domain.State) error
	})
	if !ok {
		return domain.Result{}, fmt.Errorf("store %T cannot replace state", s.store)
	}
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, "restore_state")
	var res domain.Result
	engine := s.rulesEngine()
	err := memory.NewStoreWithState(nil, state).View(ctx, func(view domain.TransactionView) error {
		var err error
		res, err = engine.Evaluate(ctx, view, nil)
		return err
	})
	if err == nil && res.HasBlocking() {
		err = domain.RuleViolationError{Result: res}
	}
	if err == nil {
		err = replacer.Replace(ctx, state)
	}
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, "restore_state", err == nil, duration)
	if err != nil {
		s.logger.Error("restore state failed", "error", err)
		s.recordAudit(ctx, "restore_state", "", duration, res, err)
		return res, err
	}
	s.logger.Info("state restored", "rooms", len(state.Rooms), "guests", len(state.Guests))
	s.recordAudit(ctx, "restore_state", "", duration, res, nil)
	return res, nil
}

// SweepOvertime notifies every guest who stayed past the alert threshold and
// returns them.
func (s *Service) SweepOvertime(ctx context.Context) []OvertimeGuest {
	report := s.Report()
	for _, g := range report.Overtime {
		s.notifier.Notify(ctx, domain.Notification{
			Kind:     KindOvertime,
			Message:  fmt.Sprintf("%s 已超时 %d 分钟未退房", g.Name, g.MinutesOver),
			EntityID: g.GuestID,
			Level:    domain.LevelWarning,
		})
	}
	if len(report.Overtime) > 0 {
		s.logger.Warn("overtime guests", "count", len(report.Overtime))
	}
	return report.Overtime
}

func (s *Service) rulesEngine() *domain.RulesEngine {
	if holder, ok := s.store.(interface{ RulesEngine() *domain.RulesEngine }); ok && holder.RulesEngine() != nil {
		return holder.RulesEngine()
	}
	return NewDefaultRulesEngine()
}

func (s *Service) execute(ctx context.Context, op, entityID string, build func(domain.State) occupancy.Command) (occupancy.Outcome, domain.Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)

	var out occupancy.Outcome
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current := tx.State()
		next, outcome, err := occupancy.Apply(current, build(current), s.policy)
		if err != nil {
			return err
		}
		out = outcome
		return writeTouched(tx, next, outcome.Touched)
	})
	var persistErr domain.PersistError
	if errors.As(err, &persistErr) {
		s.persistFailures.Add(1)
		if rec, ok := s.metrics.(interface{ PersistFailed(ctx context.Context, op string) }); ok {
			rec.PersistFailed(ctx, op)
		}
		s.logger.Error("persist snapshot failed", "operation", op, "buckets", persistErr.Buckets, "error", persistErr.Err)
		err = nil
	}

	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if out.GuestID != "" {
		entityID = out.GuestID
	}
	s.recordAudit(ctx, op, entityID, duration, res, err)
	if err != nil {
		s.logger.Warn("command rejected", "operation", op, "entity_id", entityID, "error", err)
		return occupancy.Outcome{}, res, err
	}
	for _, v := range res.Violations {
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", v.Severity, "message", v.Message)
	}
	if out.Changed() {
		s.logger.Debug("command applied", "operation", op, "kind", out.Kind, "entity_id", entityID, "duration", duration)
		s.notifier.Notify(ctx, domain.Notification{
			Kind:     out.Kind,
			Message:  out.Notification,
			EntityID: entityID,
			Level:    domain.LevelSuccess,
		})
	}
	return out, res, nil
}

func writeTouched(tx domain.Transaction, next domain.State, touched []domain.Bucket) error {
	for _, bucket := range touched {
		var err error
		switch bucket {
		case domain.BucketRooms:
			err = tx.PutRooms(next.Rooms)
		case domain.BucketGuests:
			err = tx.PutGuests(next.Guests)
		case domain.BucketSettings:
			err = tx.PutSettings(next.Settings)
		default:
			err = fmt.Errorf("unknown bucket %s", bucket)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var operations = map[string]operationMeta{
	"add_booking":           {domain.EntityGuest, domain.ActionCreate},
	"update_bed":            {domain.EntityBed, domain.ActionUpdate},
	"set_bed_fields":        {domain.EntityBed, domain.ActionUpdate},
	"checkout_guest":        {domain.EntityGuest, domain.ActionUpdate},
	"extend_stay":           {domain.EntityGuest, domain.ActionUpdate},
	"batch_add_rooms":       {domain.EntityRoom, domain.ActionCreate},
	"save_settings":         {domain.EntitySettings, domain.ActionReplace},
	"delete_room":           {domain.EntityRoom, domain.ActionDelete},
	"recompute_room_policy": {domain.EntityRoom, domain.ActionUpdate},
	"restore_state":         {domain.EntityState, domain.ActionReplace},
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, res domain.Result, err error) {
	meta, ok := operations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Timestamp:  s.clock.Now(),
		Operation:  op,
		Entity:     meta.entity,
		Action:     meta.action,
		EntityID:   entityID,
		Status:     AuditStatusSuccess,
		Duration:   duration,
		Violations: res.Violations,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
