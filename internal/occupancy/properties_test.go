package occupancy

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"zenstay/pkg/domain"
)

// randomCommand picks a command over the ids currently in s. Bed field patches
// cover what the front desk issues: cleaning changes, releases, reservations
// and handing a bed back to a guest that lists it.
func randomCommand(rng *rand.Rand, s domain.State, step int) Command {
	beds := s.AllBeds()
	pickBed := func() string {
		if len(beds) == 0 || rng.Intn(10) == 0 {
			return "missing-bed"
		}
		return beds[rng.Intn(len(beds))].ID
	}
	pickGuest := func() string {
		if len(s.Guests) == 0 || rng.Intn(10) == 0 {
			return "missing-guest"
		}
		return s.Guests[rng.Intn(len(s.Guests))].ID
	}
	pickRoom := func() string {
		if len(s.Rooms) == 0 {
			return "missing-room"
		}
		return s.Rooms[rng.Intn(len(s.Rooms))].ID
	}
	vacancy := []VacancyPolicy{"", VacancyKeep, VacancyReset}[rng.Intn(3)]

	switch rng.Intn(11) {
	case 0, 1:
		n := 1 + rng.Intn(3)
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			ids = append(ids, pickBed())
		}
		gender := domain.GenderMale
		if rng.Intn(2) == 0 {
			gender = domain.GenderFemale
		}
		return BookGuest{GuestID: fmt.Sprintf("g-%d", step), Draft: draft("guest", gender, ids...)}
	case 2:
		return CheckoutGuest{GuestID: pickGuest(), Vacancy: vacancy}
	case 3:
		return ExtendStay{GuestID: pickGuest(), Days: rng.Intn(7) - 2}
	case 4:
		return ResolveBedUpdate(s, pickBed(), domain.BedPatch{Status: ptr(domain.BedAvailable)})
	case 5:
		status := []domain.CleaningStatus{domain.CleaningClean, domain.CleaningDirty, domain.CleaningCleaning}[rng.Intn(3)]
		return ResolveBedUpdate(s, pickBed(), domain.BedPatch{CleaningStatus: &status})
	case 6:
		return BatchAddRooms{BatchID: fmt.Sprint(step), StartNumber: 300 + step, Count: 1 + rng.Intn(2), BedsPerRoom: rng.Intn(4), Type: domain.RoomSuperior}
	case 7:
		return RecomputeRoomPolicy{RoomID: pickRoom(), Vacancy: vacancy}
	case 8:
		return DeleteRoom{RoomID: pickRoom()}
	case 9:
		return ResolveBedUpdate(s, pickBed(), domain.BedPatch{Status: ptr(domain.BedReserved)})
	default:
		id := pickBed()
		for _, g := range s.Guests {
			if g.HoldsBed(id) {
				return SetBedFields{BedID: id, Patch: domain.BedPatch{Status: ptr(domain.BedOccupied), GuestID: ptr(g.ID)}}
			}
		}
		return ResolveBedUpdate(s, id, domain.BedPatch{Status: ptr(domain.BedReserved)})
	}
}

func TestRandomSequencesLeaveNoOrphans(t *testing.T) {
	for _, tc := range []struct {
		name   string
		policy Policy
	}{
		{"strict", Strict()},
		{"lenient", Lenient()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(1); seed <= 20; seed++ {
				rng := rand.New(rand.NewSource(seed))
				s := domain.SeedState()
				for step := 0; step < 150; step++ {
					cmd := randomCommand(rng, s, step)
					next, _, err := Apply(s, cmd, tc.policy)
					if err != nil {
						require.Equal(t, s, next, "failed command must not change state")
						continue
					}
					require.Empty(t, CheckInvariants(next), "seed %d step %d after %#v", seed, step, cmd)
					if c, ok := cmd.(CheckoutGuest); ok {
						requireCheckedOut(t, next, c.GuestID)
					}
					s = next
				}
			}
		})
	}
}

// requireCheckedOut asserts every listed bed of guestID that no other guest
// holds is available, dirty and unassigned.
func requireCheckedOut(t *testing.T, s domain.State, guestID string) {
	t.Helper()
	guest, _, ok := s.FindGuest(guestID)
	if !ok {
		return
	}
	for _, id := range guest.BedIDs {
		b, _, ok := s.FindBed(id)
		if !ok || b.GuestID != "" {
			continue
		}
		require.Equal(t, domain.BedAvailable, b.Status, "bed %s of %s", id, guestID)
		require.Equal(t, domain.CleaningDirty, b.CleaningStatus, "bed %s of %s", id, guestID)
	}
}
