package occupancy

import "zenstay/pkg/domain"

// Notification kinds reported in Outcome.Kind.
const (
	KindBooking          = "booking"
	KindCheckout         = "checkout"
	KindExtension        = "extension"
	KindRoomsBatch       = "rooms_batch"
	KindSettings         = "settings"
	KindRoomDeleted      = "room_deleted"
	KindBedUpdated       = "bed_updated"
	KindPolicyRecomputed = "policy_recomputed"
)

// Command is one state transition understood by Apply.
type Command interface {
	Kind() string
}

// BookGuest registers a guest and occupies the selected beds.
type BookGuest struct {
	GuestID string
	Draft   domain.GuestDraft
}

// SetBedFields merges a partial update into one bed.
type SetBedFields struct {
	BedID string
	Patch domain.BedPatch
}

// CheckoutGuest releases every bed still held by the guest.
type CheckoutGuest struct {
	GuestID string
	Vacancy VacancyPolicy
}

// ExtendStay moves the guest's departure date and bills the extra nights.
type ExtendStay struct {
	GuestID string
	Days    int
}

// BatchAddRooms appends Count rooms numbered from StartNumber.
type BatchAddRooms struct {
	BatchID     string
	StartNumber int
	Count       int
	BedsPerRoom int
	Type        domain.RoomType
}

// SaveSettings replaces the settings record.
type SaveSettings struct {
	Settings domain.SystemSettings
}

// RecomputeRoomPolicy re-derives a room's gender policy from its occupants.
type RecomputeRoomPolicy struct {
	RoomID  string
	Vacancy VacancyPolicy
}

// DeleteRoom removes a room and its beds.
type DeleteRoom struct {
	RoomID string
}

func (BookGuest) Kind() string           { return KindBooking }
func (SetBedFields) Kind() string        { return KindBedUpdated }
func (CheckoutGuest) Kind() string       { return KindCheckout }
func (ExtendStay) Kind() string          { return KindExtension }
func (BatchAddRooms) Kind() string       { return KindRoomsBatch }
func (SaveSettings) Kind() string        { return KindSettings }
func (RecomputeRoomPolicy) Kind() string { return KindPolicyRecomputed }
func (DeleteRoom) Kind() string          { return KindRoomDeleted }

// Outcome summarises an applied command.
type Outcome struct {
	Kind         string          `json:"kind,omitempty"`
	Notification string          `json:"notification,omitempty"`
	Touched      []domain.Bucket `json:"touched,omitempty"`
	GuestID      string          `json:"guestId,omitempty"`
	RoomIDs      []string        `json:"roomIds,omitempty"`
}

// Changed reports whether the command modified any bucket.
func (o Outcome) Changed() bool {
	return len(o.Touched) > 0
}

// ResolveBedUpdate maps the legacy single-bed update onto an explicit command.
// Marking an occupied bed available checks out its occupant, which releases
// every bed of that booking; the rest of the patch is dropped in that case.
func ResolveBedUpdate(state domain.State, bedID string, patch domain.BedPatch) Command {
	if patch.Status != nil && *patch.Status == domain.BedAvailable {
		if bed, _, ok := state.FindBed(bedID); ok && bed.GuestID != "" {
			return CheckoutGuest{GuestID: bed.GuestID}
		}
	}
	return SetBedFields{BedID: bedID, Patch: patch}
}
