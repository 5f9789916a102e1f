package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for stay dates.
const DateLayout = "2006-01-02"

// State is the complete persistent state: rooms with nested beds, guests, and
// the settings record.
type State struct {
	Rooms    []Room         `json:"rooms"`
	Guests   []Guest        `json:"guests"`
	Settings SystemSettings `json:"settings"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := State{Settings: s.Settings}
	if s.Rooms != nil {
		cp.Rooms = make([]Room, len(s.Rooms))
		for i, r := range s.Rooms {
			cp.Rooms[i] = r.Clone()
		}
	}
	if s.Guests != nil {
		cp.Guests = make([]Guest, len(s.Guests))
		for i, g := range s.Guests {
			cp.Guests[i] = g.Clone()
		}
	}
	return cp
}

// BedRef locates a bed within State.Rooms.
type BedRef struct {
	Room int
	Bed  int
}

// FindBed returns the bed with the given id and its position.
func (s State) FindBed(bedID string) (Bed, BedRef, bool) {
	for ri, room := range s.Rooms {
		for bi, bed := range room.Beds {
			if bed.ID == bedID {
				return bed, BedRef{Room: ri, Bed: bi}, true
			}
		}
	}
	return Bed{}, BedRef{}, false
}

// FindRoom returns the room with the given id and its index.
func (s State) FindRoom(roomID string) (Room, int, bool) {
	for i, room := range s.Rooms {
		if room.ID == roomID {
			return room, i, true
		}
	}
	return Room{}, -1, false
}

// FindGuest returns the guest with the given id and its index.
func (s State) FindGuest(guestID string) (Guest, int, bool) {
	for i, g := range s.Guests {
		if g.ID == guestID {
			return g, i, true
		}
	}
	return Guest{}, -1, false
}

// AllBeds flattens every bed across rooms in display order.
func (s State) AllBeds() []Bed {
	var out []Bed
	for _, room := range s.Rooms {
		out = append(out, room.Beds...)
	}
	return out
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// ShiftDate moves a calendar date by days and re-serializes it.
func ShiftDate(value string, days int) (string, error) {
	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

// SeedRooms returns the rooms used when no rooms were persisted.
func SeedRooms() []Room {
	std := decimal.NewFromInt(50)
	sup := decimal.NewFromInt(85)
	return []Room{
		{
			ID:           "r1",
			Number:       "101",
			Type:         RoomStandard,
			GenderPolicy: PolicyMixed,
			Beds: []Bed{
				{ID: "b1-1", Name: "床位 A", RoomID: "r1", Status: BedOccupied, CleaningStatus: CleaningClean, GuestID: "g1", PricePerNight: std},
				{ID: "b1-2", Name: "床位 B", RoomID: "r1", Status: BedAvailable, CleaningStatus: CleaningDirty, PricePerNight: std},
				{ID: "b1-3", Name: "床位 C", RoomID: "r1", Status: BedAvailable, CleaningStatus: CleaningClean, PricePerNight: std},
				{ID: "b1-4", Name: "床位 D", RoomID: "r1", Status: BedAvailable, CleaningStatus: CleaningClean, PricePerNight: std},
			},
		},
		{
			ID:           "r2",
			Number:       "102",
			Type:         RoomSuperior,
			GenderPolicy: PolicyFemale,
			Beds: []Bed{
				{ID: "b2-1", Name: "床位 A", RoomID: "r2", Status: BedAvailable, CleaningStatus: CleaningClean, PricePerNight: sup},
				{ID: "b2-2", Name: "床位 B", RoomID: "r2", Status: BedAvailable, CleaningStatus: CleaningClean, PricePerNight: sup},
			},
		},
	}
}

// SeedGuests returns the guests used when no guests were persisted.
func SeedGuests() []Guest {
	return []Guest{{
		ID: "g1",
		GuestDraft: GuestDraft{
			Name:        "张伟",
			Phone:       "13800000001",
			IDNumber:    "110101199001010001",
			Gender:      GenderMale,
			Ethnicity:   "汉族",
			CheckIn:     "2024-05-20",
			CheckOut:    "2024-05-25",
			BedIDs:      []string{"b1-1"},
			TotalPaid:   decimal.NewFromInt(250),
			PeopleCount: 1,
		},
	}}
}

// SeedState returns the complete default state.
func SeedState() State {
	return State{Rooms: SeedRooms(), Guests: SeedGuests(), Settings: DefaultSettings()}
}
