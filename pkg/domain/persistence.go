package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Each Put replaces one whole bucket.
type Transaction interface {
	Snapshot() TransactionView
	State() State
	PutRooms(rooms []Room) error
	PutGuests(guests []Guest) error
	PutSettings(settings SystemSettings) error
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	State() State
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ListRooms() []Room
	ListGuests() []Guest
	Settings() SystemSettings
	State() State
}

// PersistError reports that a committed transaction could not be written to
// the durable backend. The in-memory state already reflects the commit.
type PersistError struct {
	Buckets []Bucket
	Err     error
}

func (e PersistError) Error() string {
	return "persist snapshot: " + e.Err.Error()
}

func (e PersistError) Unwrap() error { return e.Err }

// Notification is a human-readable message produced by a command for UI feedback.
type Notification struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	EntityID string `json:"entityId,omitempty"`
	Level    string `json:"level"`
}

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
)
