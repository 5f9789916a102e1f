package occupancy

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"zenstay/pkg/domain"
)

// Apply runs cmd against a copy of state. The input state is never modified;
// on error it is returned as given. Unknown guest, bed and room ids are
// no-ops that return an equal state and an Outcome with no touched buckets.
func Apply(state domain.State, cmd Command, policy Policy) (domain.State, Outcome, error) {
	next := state.Clone()
	var (
		out Outcome
		err error
	)
	switch c := cmd.(type) {
	case BookGuest:
		out, err = bookGuest(&next, c, policy)
	case SetBedFields:
		out, err = setBedFields(&next, c)
	case CheckoutGuest:
		out, err = checkoutGuest(&next, c, policy)
	case ExtendStay:
		out, err = extendStay(&next, c, policy)
	case BatchAddRooms:
		out, err = batchAddRooms(&next, c, policy)
	case SaveSettings:
		out, err = saveSettings(&next, c)
	case RecomputeRoomPolicy:
		out, err = recomputeRoomPolicy(&next, c, policy)
	case DeleteRoom:
		out, err = deleteRoom(&next, c, policy)
	default:
		return state, Outcome{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	if err != nil {
		return state, Outcome{}, err
	}
	if out.Changed() {
		out.Kind = cmd.Kind()
	}
	return next, out, nil
}

func bookGuest(s *domain.State, c BookGuest, policy Policy) (Outcome, error) {
	if len(c.Draft.BedIDs) == 0 {
		return Outcome{}, ErrNoBeds
	}
	if c.GuestID == "" {
		return Outcome{}, fmt.Errorf("book guest: empty guest id")
	}
	if _, _, exists := s.FindGuest(c.GuestID); exists {
		return Outcome{}, fmt.Errorf("%w: %s", ErrGuestExists, c.GuestID)
	}
	selected := make(map[string]struct{}, len(c.Draft.BedIDs))
	for _, id := range c.Draft.BedIDs {
		if policy.RejectOccupiedBeds {
			if _, dup := selected[id]; dup {
				return Outcome{}, fmt.Errorf("%w: %s selected twice", ErrBedUnavailable, id)
			}
			bed, _, ok := s.FindBed(id)
			if !ok {
				return Outcome{}, domain.ErrNotFound{Entity: domain.EntityBed, ID: id}
			}
			if bed.Status != domain.BedAvailable {
				return Outcome{}, fmt.Errorf("%w: %s is %s", ErrBedUnavailable, id, bed.Status)
			}
		}
		selected[id] = struct{}{}
	}

	guest := domain.Guest{ID: c.GuestID, GuestDraft: c.Draft}
	guest = guest.Clone()
	s.Guests = append(s.Guests, guest)

	var roomIDs []string
	for ri := range s.Rooms {
		room := &s.Rooms[ri]
		hit := false
		for bi := range room.Beds {
			bed := &room.Beds[bi]
			if _, ok := selected[bed.ID]; !ok {
				continue
			}
			bed.Status = domain.BedOccupied
			bed.GuestID = guest.ID
			hit = true
		}
		if hit {
			room.GenderPolicy = DerivePolicy(*room, s.Guests, guest.Gender.Policy())
			roomIDs = append(roomIDs, room.ID)
		}
	}
	return Outcome{
		Notification: "入住登记成功，床位已锁定",
		Touched:      []domain.Bucket{domain.BucketRooms, domain.BucketGuests},
		GuestID:      guest.ID,
		RoomIDs:      roomIDs,
	}, nil
}

func setBedFields(s *domain.State, c SetBedFields) (Outcome, error) {
	_, ref, ok := s.FindBed(c.BedID)
	if !ok || c.Patch.Empty() {
		return Outcome{}, nil
	}
	room := &s.Rooms[ref.Room]
	bed := &room.Beds[ref.Bed]
	if c.Patch.Status != nil {
		bed.Status = *c.Patch.Status
	}
	if c.Patch.CleaningStatus != nil {
		bed.CleaningStatus = *c.Patch.CleaningStatus
	}
	if c.Patch.GuestID != nil {
		bed.GuestID = *c.Patch.GuestID
		if bed.GuestID != "" && c.Patch.Status == nil {
			bed.Status = domain.BedOccupied
		}
	}
	if bed.Status != domain.BedOccupied {
		bed.GuestID = ""
	}
	return Outcome{
		Notification: fmt.Sprintf("%s %s 状态已更新", room.Number, bed.Name),
		Touched:      []domain.Bucket{domain.BucketRooms},
		RoomIDs:      []string{room.ID},
	}, nil
}

func checkoutGuest(s *domain.State, c CheckoutGuest, policy Policy) (Outcome, error) {
	guest, _, ok := s.FindGuest(c.GuestID)
	if !ok {
		return Outcome{}, nil
	}
	reset := policy.vacancy(c.Vacancy) == VacancyReset
	var roomIDs []string
	for ri := range s.Rooms {
		room := &s.Rooms[ri]
		hit := false
		for bi := range room.Beds {
			bed := &room.Beds[bi]
			if !guest.HoldsBed(bed.ID) || (bed.GuestID != "" && bed.GuestID != guest.ID) {
				continue
			}
			bed.Status = domain.BedAvailable
			bed.CleaningStatus = domain.CleaningDirty
			bed.GuestID = ""
			hit = true
		}
		if !hit {
			continue
		}
		if reset {
			room.GenderPolicy = DerivePolicy(*room, s.Guests, domain.PolicyMixed)
		}
		roomIDs = append(roomIDs, room.ID)
	}
	return Outcome{
		Notification: fmt.Sprintf("%s 及其同行人员已退房，床位待清理", guest.Name),
		Touched:      []domain.Bucket{domain.BucketRooms},
		GuestID:      guest.ID,
		RoomIDs:      roomIDs,
	}, nil
}

func extendStay(s *domain.State, c ExtendStay, policy Policy) (Outcome, error) {
	_, gi, ok := s.FindGuest(c.GuestID)
	if !ok {
		return Outcome{}, nil
	}
	if policy.RejectNonPositiveNights && c.Days <= 0 {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidNights, c.Days)
	}
	guest := &s.Guests[gi]
	checkOut, err := domain.ShiftDate(guest.CheckOut, c.Days)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: guest %s: %v", ErrInvalidDate, guest.ID, err)
	}
	rate := DailyRate(*s, *guest)
	guest.CheckOut = checkOut
	guest.TotalPaid = guest.TotalPaid.Add(rate.Mul(decimal.NewFromInt(int64(c.Days))))
	return Outcome{
		Notification: fmt.Sprintf("续住成功，离店日期已顺延 %d 天", c.Days),
		Touched:      []domain.Bucket{domain.BucketGuests},
		GuestID:      guest.ID,
	}, nil
}

// DailyRate sums the current nightly price of every existing bed the guest
// lists. Beds that were deleted contribute nothing.
func DailyRate(s domain.State, guest domain.Guest) decimal.Decimal {
	rate := decimal.Zero
	for _, room := range s.Rooms {
		for _, bed := range room.Beds {
			if guest.HoldsBed(bed.ID) {
				rate = rate.Add(bed.PricePerNight)
			}
		}
	}
	return rate
}

func batchAddRooms(s *domain.State, c BatchAddRooms, policy Policy) (Outcome, error) {
	if c.Count < 0 || (c.Count == 0 && policy.RejectEmptyBatch) || c.BedsPerRoom < 0 {
		return Outcome{}, fmt.Errorf("%w: count=%d beds=%d", ErrInvalidBatch, c.Count, c.BedsPerRoom)
	}
	if !c.Type.Valid() {
		return Outcome{}, fmt.Errorf("%w: room type %q", ErrInvalidBatch, c.Type)
	}
	price := s.Settings.PriceFor(c.Type)
	roomIDs := make([]string, 0, c.Count)
	for i := 0; i < c.Count; i++ {
		roomID := fmt.Sprintf("r-batch-%s-%d", c.BatchID, i)
		beds := make([]domain.Bed, c.BedsPerRoom)
		for j := range beds {
			beds[j] = domain.Bed{
				ID:             fmt.Sprintf("b-%s-%d", roomID, j),
				Name:           "床位 " + BedLetter(j),
				RoomID:         roomID,
				Status:         domain.BedAvailable,
				CleaningStatus: domain.CleaningClean,
				PricePerNight:  price,
			}
		}
		s.Rooms = append(s.Rooms, domain.Room{
			ID:           roomID,
			Number:       strconv.Itoa(c.StartNumber + i),
			Type:         c.Type,
			GenderPolicy: domain.PolicyMixed,
			Beds:         beds,
		})
		roomIDs = append(roomIDs, roomID)
	}
	return Outcome{
		Notification: fmt.Sprintf("成功批量创建 %d 间客房", c.Count),
		Touched:      []domain.Bucket{domain.BucketRooms},
		RoomIDs:      roomIDs,
	}, nil
}

// BedLetter returns the display letter for the bed at index: A..Z, then AA, AB.
func BedLetter(index int) string {
	var buf []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}

func saveSettings(s *domain.State, c SaveSettings) (Outcome, error) {
	s.Settings = c.Settings
	return Outcome{
		Notification: "系统配置已更新",
		Touched:      []domain.Bucket{domain.BucketSettings},
	}, nil
}

func recomputeRoomPolicy(s *domain.State, c RecomputeRoomPolicy, policy Policy) (Outcome, error) {
	_, ri, ok := s.FindRoom(c.RoomID)
	if !ok {
		return Outcome{}, nil
	}
	room := &s.Rooms[ri]
	fallback := room.GenderPolicy
	if policy.vacancy(c.Vacancy) == VacancyReset {
		fallback = domain.PolicyMixed
	}
	room.GenderPolicy = DerivePolicy(*room, s.Guests, fallback)
	return Outcome{
		Notification: fmt.Sprintf("客房 %s 性别策略为 %s", room.Number, room.GenderPolicy.Label()),
		Touched:      []domain.Bucket{domain.BucketRooms},
		RoomIDs:      []string{room.ID},
	}, nil
}

func deleteRoom(s *domain.State, c DeleteRoom, policy Policy) (Outcome, error) {
	room, ri, ok := s.FindRoom(c.RoomID)
	if !ok {
		return Outcome{}, nil
	}
	if policy.RejectOccupiedBeds && room.OccupiedCount() > 0 {
		return Outcome{}, fmt.Errorf("%w: %s has %d", ErrRoomOccupied, room.Number, room.OccupiedCount())
	}
	s.Rooms = append(s.Rooms[:ri], s.Rooms[ri+1:]...)
	return Outcome{
		Notification: fmt.Sprintf("客房 %s 已删除", room.Number),
		Touched:      []domain.Bucket{domain.BucketRooms},
		RoomIDs:      []string{room.ID},
	}, nil
}
