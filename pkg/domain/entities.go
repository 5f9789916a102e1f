// Package domain defines the persistent hostel entities, value types, and
// rule evaluation primitives used by zenstay.
package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	// Snapshots keep prices as bare JSON numbers, as the browser tool wrote them.
	decimal.MarshalJSONWithoutQuotes = true
}

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and violations.
const (
	EntityRoom     EntityType = "room"
	EntityBed      EntityType = "bed"
	EntityGuest    EntityType = "guest"
	EntitySettings EntityType = "settings"
	EntityState    EntityType = "state"
)

// Bucket names one independently persisted collection. The values double as
// storage keys in every snapshot backend.
type Bucket string

// Persisted buckets.
const (
	BucketRooms    Bucket = "ZENSTAY_ROOMS_DATA"
	BucketGuests   Bucket = "ZENSTAY_GUESTS_DATA"
	BucketSettings Bucket = "ZENSTAY_SETTINGS_DATA"
)

// Buckets lists every persisted bucket in a stable order.
func Buckets() []Bucket {
	return []Bucket{BucketRooms, BucketGuests, BucketSettings}
}

// Bed is the smallest bookable unit. It always belongs to exactly one Room.
type Bed struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	RoomID         string          `json:"roomId"`
	Status         BedStatus       `json:"status"`
	CleaningStatus CleaningStatus  `json:"cleaningStatus"`
	GuestID        string          `json:"guestId,omitempty"`
	PricePerNight  decimal.Decimal `json:"pricePerNight"`
}

// Occupied reports whether the bed is held by a guest.
func (b Bed) Occupied() bool {
	return b.Status == BedOccupied
}

// BedPatch is a partial bed update. Nil fields are left untouched.
type BedPatch struct {
	Status         *BedStatus      `json:"status,omitempty"`
	CleaningStatus *CleaningStatus `json:"cleaningStatus,omitempty"`
	GuestID        *string         `json:"guestId,omitempty"`
}

// Empty reports whether the patch carries no field.
func (p BedPatch) Empty() bool {
	return p.Status == nil && p.CleaningStatus == nil && p.GuestID == nil
}

// Room owns an ordered sequence of beds. Bed order is display order.
type Room struct {
	ID           string       `json:"id"`
	Number       string       `json:"number"`
	Type         RoomType     `json:"type"`
	GenderPolicy GenderPolicy `json:"genderPolicy"`
	Beds         []Bed        `json:"beds"`
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	cp := r
	cp.Beds = slices.Clone(r.Beds)
	return cp
}

// OccupiedCount returns the number of occupied beds.
func (r Room) OccupiedCount() int {
	n := 0
	for _, b := range r.Beds {
		if b.Occupied() {
			n++
		}
	}
	return n
}

// Guest is one booking event. A single registrant may hold several beds.
type Guest struct {
	ID string `json:"id"`
	GuestDraft
}

// GuestDraft carries every Guest field except its identity.
type GuestDraft struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	IDNumber    string          `json:"idNumber"`
	Gender      Gender          `json:"gender"`
	Ethnicity   string          `json:"ethnicity"`
	CheckIn     string          `json:"checkIn"`
	CheckOut    string          `json:"checkOut"`
	BedIDs      []string        `json:"bedIds"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	PeopleCount int             `json:"peopleCount"`
}

// Clone returns a deep copy of the guest.
func (g Guest) Clone() Guest {
	cp := g
	cp.BedIDs = slices.Clone(g.BedIDs)
	return cp
}

// HoldsBed reports whether the bed id is part of the booking.
func (g Guest) HoldsBed(bedID string) bool {
	return slices.Contains(g.BedIDs, bedID)
}

// SystemSettings is the process-wide configuration record. It is replaced
// wholesale on save.
type SystemSettings struct {
	StandardPrice        decimal.Decimal `json:"standardPrice"`
	SuperiorPrice        decimal.Decimal `json:"superiorPrice"`
	CheckOutTime         string          `json:"checkOutTime"`
	OvertimeAlertMinutes int             `json:"overtimeAlertMinutes"`
}

// PriceFor returns the default nightly price for new beds of the room type.
func (s SystemSettings) PriceFor(t RoomType) decimal.Decimal {
	if t == RoomSuperior {
		return s.SuperiorPrice
	}
	return s.StandardPrice
}

// DefaultSettings returns the settings used when none were persisted.
func DefaultSettings() SystemSettings {
	return SystemSettings{
		StandardPrice:        decimal.NewFromInt(50),
		SuperiorPrice:        decimal.NewFromInt(85),
		CheckOutTime:         "12:00",
		OvertimeAlertMinutes: 30,
	}
}

// Change describes a mutation captured during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Bucket Bucket
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions.
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)
