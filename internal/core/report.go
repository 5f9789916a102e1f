package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"zenstay/pkg/domain"
)

// KindOvertime tags notifications about guests past their checkout time.
const KindOvertime = "overtime"

const defaultCheckOutTime = "12:00"

// Report is the dashboard read model.
type Report struct {
	GeneratedAt    time.Time                     `json:"generatedAt"`
	TotalRooms     int                           `json:"totalRooms"`
	TotalBeds      int                           `json:"totalBeds"`
	BedsByStatus   map[domain.BedStatus]int      `json:"bedsByStatus"`
	BedsByCleaning map[domain.CleaningStatus]int `json:"bedsByCleaning"`
	OccupancyRate  float64                       `json:"occupancyRate"`
	Revenue        decimal.Decimal               `json:"revenue"`
	ActiveGuests   int                           `json:"activeGuests"`
	GuestsByGender map[domain.Gender]int         `json:"guestsByGender"`
	ByEthnicity    map[string]int                `json:"guestsByEthnicity"`
	RoomsByType    map[domain.RoomType]int       `json:"roomsByType"`
	Overtime       []OvertimeGuest               `json:"overtime"`
}

// OvertimeGuest is an active guest past checkout plus the alert grace period.
type OvertimeGuest struct {
	GuestID     string   `json:"guestId"`
	Name        string   `json:"name"`
	CheckOut    string   `json:"checkOut"`
	BedIDs      []string `json:"bedIds"`
	MinutesOver int      `json:"minutesOver"`
}

// BuildReport summarises state as seen at now. Revenue counts every guest
// record, including checked-out ones; the guest breakdowns count only guests
// still holding a bed.
func BuildReport(state domain.State, now time.Time) Report {
	r := Report{
		GeneratedAt:    now,
		TotalRooms:     len(state.Rooms),
		BedsByStatus:   make(map[domain.BedStatus]int),
		BedsByCleaning: make(map[domain.CleaningStatus]int),
		Revenue:        decimal.Zero,
		GuestsByGender: make(map[domain.Gender]int),
		ByEthnicity:    make(map[string]int),
		RoomsByType:    make(map[domain.RoomType]int),
		Overtime:       []OvertimeGuest{},
	}
	held := make(map[string][]string)
	for _, room := range state.Rooms {
		r.RoomsByType[room.Type]++
		for _, bed := range room.Beds {
			r.TotalBeds++
			r.BedsByStatus[bed.Status]++
			r.BedsByCleaning[bed.CleaningStatus]++
			if bed.Occupied() && bed.GuestID != "" {
				held[bed.GuestID] = append(held[bed.GuestID], bed.ID)
			}
		}
	}
	if r.TotalBeds > 0 {
		r.OccupancyRate = float64(r.BedsByStatus[domain.BedOccupied]) / float64(r.TotalBeds)
	}
	for _, g := range state.Guests {
		r.Revenue = r.Revenue.Add(g.TotalPaid)
		beds, active := held[g.ID]
		if !active {
			continue
		}
		r.ActiveGuests++
		r.GuestsByGender[g.Gender]++
		if g.Ethnicity != "" {
			r.ByEthnicity[g.Ethnicity]++
		}
		due, err := checkoutDeadline(g.CheckOut, state.Settings.CheckOutTime, now.Location())
		if err != nil {
			continue
		}
		grace := time.Duration(state.Settings.OvertimeAlertMinutes) * time.Minute
		if now.After(due.Add(grace)) {
			r.Overtime = append(r.Overtime, OvertimeGuest{
				GuestID:     g.ID,
				Name:        g.Name,
				CheckOut:    g.CheckOut,
				BedIDs:      beds,
				MinutesOver: int(now.Sub(due) / time.Minute),
			})
		}
	}
	sort.Slice(r.Overtime, func(i, j int) bool {
		return r.Overtime[i].MinutesOver > r.Overtime[j].MinutesOver
	})
	return r
}

// checkoutDeadline combines a YYYY-MM-DD date with an HH:mm checkout time in loc.
func checkoutDeadline(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	at, err := time.Parse("15:04", clock)
	if err != nil {
		at, _ = time.Parse("15:04", defaultCheckOutTime)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, loc), nil
}
