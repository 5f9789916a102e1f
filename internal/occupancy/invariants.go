package occupancy

import (
	"fmt"

	"zenstay/pkg/domain"
)

// RuleBedGuestIntegrity names the violations reported by CheckInvariants.
const RuleBedGuestIntegrity = "bed_guest_integrity"

// CheckInvariants reports every bed/guest reference that is inconsistent in
// state. Guests may list beds they no longer hold; those ids are history.
func CheckInvariants(state domain.State) []domain.Violation {
	var out []domain.Violation
	report := func(entity domain.EntityType, id, format string, args ...any) {
		out = append(out, domain.Violation{
			Rule:     RuleBedGuestIntegrity,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	guests := make(map[string]domain.Guest, len(state.Guests))
	for _, g := range state.Guests {
		guests[g.ID] = g
	}
	seen := make(map[string]string)
	for _, room := range state.Rooms {
		for _, bed := range room.Beds {
			if owner, dup := seen[bed.ID]; dup {
				report(domain.EntityBed, bed.ID, "bed id used by rooms %s and %s", owner, room.ID)
			}
			seen[bed.ID] = room.ID
			if bed.RoomID != room.ID {
				report(domain.EntityBed, bed.ID, "bed belongs to room %s but references %s", room.ID, bed.RoomID)
			}
			switch {
			case bed.Occupied() && bed.GuestID == "":
				report(domain.EntityBed, bed.ID, "occupied bed has no guest")
			case !bed.Occupied() && bed.GuestID != "":
				report(domain.EntityBed, bed.ID, "%s bed references guest %s", bed.Status, bed.GuestID)
			case bed.Occupied():
				guest, ok := guests[bed.GuestID]
				if !ok {
					report(domain.EntityBed, bed.ID, "occupied by unknown guest %s", bed.GuestID)
				} else if !guest.HoldsBed(bed.ID) {
					report(domain.EntityBed, bed.ID, "guest %s does not list the bed", guest.ID)
				}
			}
		}
	}
	return out
}
