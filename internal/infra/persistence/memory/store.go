// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. Durable backends embed it
// and write the buckets a transaction dirtied after it commits.
package memory

import (
	"context"
	"reflect"
	"sync"

	"zenstay/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Store provides an in-memory transactional store for the front desk state.
type Store struct {
	mu     sync.RWMutex
	state  domain.State
	engine *RulesEngine
}

// NewStore constructs an in-memory store seeded with the default state.
func NewStore(engine *RulesEngine) *Store {
	return NewStoreWithState(engine, domain.SeedState())
}

// NewStoreWithState constructs an in-memory store holding state.
func NewStoreWithState(engine *RulesEngine, state domain.State) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  migrateState(state.Clone()),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ImportState replaces the store state with the provided snapshot. Rules are
// not evaluated; callers restoring archives verify separately.
func (s *Store) ImportState(state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = migrateState(state.Clone())
}

// Replace swaps the whole state. The memory store has nothing to write.
func (s *Store) Replace(_ context.Context, state domain.State) error {
	s.ImportState(state)
	return nil
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	state   domain.State
	changes []Change
	dirty   map[domain.Bucket]struct{}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	res, _, err := s.RunTracked(ctx, fn)
	return res, err
}

// RunTracked behaves like RunInTransaction and additionally reports the
// buckets written by the committed transaction in stable order.
func (s *Store) RunTracked(ctx context.Context, fn func(tx Transaction) error) (Result, []domain.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.Clone(),
		dirty: make(map[domain.Bucket]struct{}),
	}
	if err := fn(tx); err != nil {
		return Result{}, nil, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(tx.state), tx.changes)
		if err != nil {
			return Result{}, nil, err
		}
		result = res
		if res.HasBlocking() {
			return res, nil, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	var dirty []domain.Bucket
	for _, b := range domain.Buckets() {
		if _, ok := tx.dirty[b]; ok {
			dirty = append(dirty, b)
		}
	}
	return result, dirty, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.Clone()
	s.mu.RUnlock()
	return fn(newTransactionView(snapshot))
}

// ListRooms returns all rooms in display order.
func (s *Store) ListRooms() []domain.Room {
	return s.ExportState().Rooms
}

// ListGuests returns all guests, including checked-out history.
func (s *Store) ListGuests() []domain.Guest {
	return s.ExportState().Guests
}

// Settings returns the current settings record.
func (s *Store) Settings() domain.SystemSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// State returns a deep copy of the committed state.
func (s *Store) State() domain.State {
	return s.ExportState()
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(tx.state.Clone())
}

// State returns a deep copy of the transactional state.
func (tx *transaction) State() domain.State {
	return tx.state.Clone()
}

// PutRooms replaces the rooms bucket and records per-room changes.
func (tx *transaction) PutRooms(rooms []domain.Room) error {
	next := domain.State{Rooms: rooms}.Clone().Rooms
	if next == nil {
		next = []domain.Room{}
	}
	before := make(map[string]domain.Room, len(tx.state.Rooms))
	for _, r := range tx.state.Rooms {
		before[r.ID] = r
	}
	for _, r := range next {
		prev, ok := before[r.ID]
		switch {
		case !ok:
			tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionCreate, Bucket: domain.BucketRooms, After: r.Clone()})
		case !reflect.DeepEqual(prev, r):
			tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionUpdate, Bucket: domain.BucketRooms, Before: prev.Clone(), After: r.Clone()})
		}
		delete(before, r.ID)
	}
	for _, r := range tx.state.Rooms {
		if _, gone := before[r.ID]; gone {
			tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionDelete, Bucket: domain.BucketRooms, Before: r.Clone()})
		}
	}
	tx.state.Rooms = next
	tx.dirty[domain.BucketRooms] = struct{}{}
	return nil
}

// PutGuests replaces the guests bucket and records per-guest changes.
func (tx *transaction) PutGuests(guests []domain.Guest) error {
	next := domain.State{Guests: guests}.Clone().Guests
	if next == nil {
		next = []domain.Guest{}
	}
	before := make(map[string]domain.Guest, len(tx.state.Guests))
	for _, g := range tx.state.Guests {
		before[g.ID] = g
	}
	for _, g := range next {
		prev, ok := before[g.ID]
		switch {
		case !ok:
			tx.recordChange(Change{Entity: domain.EntityGuest, Action: domain.ActionCreate, Bucket: domain.BucketGuests, After: g.Clone()})
		case !reflect.DeepEqual(prev, g):
			tx.recordChange(Change{Entity: domain.EntityGuest, Action: domain.ActionUpdate, Bucket: domain.BucketGuests, Before: prev.Clone(), After: g.Clone()})
		}
		delete(before, g.ID)
	}
	for _, g := range tx.state.Guests {
		if _, gone := before[g.ID]; gone {
			tx.recordChange(Change{Entity: domain.EntityGuest, Action: domain.ActionDelete, Bucket: domain.BucketGuests, Before: g.Clone()})
		}
	}
	tx.state.Guests = next
	tx.dirty[domain.BucketGuests] = struct{}{}
	return nil
}

// PutSettings replaces the settings record.
func (tx *transaction) PutSettings(settings domain.SystemSettings) error {
	tx.recordChange(Change{
		Entity: domain.EntitySettings,
		Action: domain.ActionReplace,
		Bucket: domain.BucketSettings,
		Before: tx.state.Settings,
		After:  settings,
	})
	tx.state.Settings = settings
	tx.dirty[domain.BucketSettings] = struct{}{}
	return nil
}

type transactionView struct {
	state domain.State
}

func newTransactionView(state domain.State) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListRooms() []domain.Room        { return domain.State{Rooms: v.state.Rooms}.Clone().Rooms }
func (v transactionView) ListGuests() []domain.Guest      { return domain.State{Guests: v.state.Guests}.Clone().Guests }
func (v transactionView) Settings() domain.SystemSettings { return v.state.Settings }
func (v transactionView) State() domain.State             { return v.state.Clone() }

// FindBed retrieves a bed by ID from the snapshot.
func (v transactionView) FindBed(id string) (domain.Bed, bool) {
	b, _, ok := v.state.FindBed(id)
	return b, ok
}

// FindGuest retrieves a guest by ID from the snapshot.
func (v transactionView) FindGuest(id string) (domain.Guest, bool) {
	g, _, ok := v.state.FindGuest(id)
	if !ok {
		return domain.Guest{}, false
	}
	return g.Clone(), true
}
