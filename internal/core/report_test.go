package core

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"zenstay/pkg/domain"
)

func TestBuildReportSeed(t *testing.T) {
	now := time.Date(2024, 5, 25, 12, 30, 0, 0, time.UTC)
	r := BuildReport(domain.SeedState(), now)

	require.Equal(t, 2, r.TotalRooms)
	require.Equal(t, 6, r.TotalBeds)
	require.Equal(t, 1, r.BedsByStatus[domain.BedOccupied])
	require.Equal(t, 5, r.BedsByStatus[domain.BedAvailable])
	require.Equal(t, 1, r.BedsByCleaning[domain.CleaningDirty])
	require.InDelta(t, 1.0/6.0, r.OccupancyRate, 1e-9)
	require.True(t, r.Revenue.Equal(decimal.NewFromInt(250)))
	require.Equal(t, 1, r.ActiveGuests)
	require.Equal(t, 1, r.GuestsByGender[domain.GenderMale])
	require.Equal(t, 1, r.ByEthnicity["汉族"])
	require.Equal(t, 1, r.RoomsByType[domain.RoomSuperior])
	require.Empty(t, r.Overtime, "exactly at the alert threshold is not overtime")
}

func TestBuildReportOvertime(t *testing.T) {
	now := time.Date(2024, 5, 25, 12, 31, 0, 0, time.UTC)
	r := BuildReport(domain.SeedState(), now)
	require.Len(t, r.Overtime, 1)
	require.Equal(t, "g1", r.Overtime[0].GuestID)
	require.Equal(t, 31, r.Overtime[0].MinutesOver)
	require.Equal(t, []string{"b1-1"}, r.Overtime[0].BedIDs)

	state := domain.SeedState()
	state.Rooms[0].Beds[0].Status = domain.BedAvailable
	state.Rooms[0].Beds[0].GuestID = ""
	r = BuildReport(state, now)
	require.Empty(t, r.Overtime, "checked-out guests are never overtime")
	require.Zero(t, r.ActiveGuests)
	require.True(t, r.Revenue.Equal(decimal.NewFromInt(250)))
}

func TestBuildReportEmptyState(t *testing.T) {
	r := BuildReport(domain.State{Settings: domain.DefaultSettings()}, time.Now())
	require.Zero(t, r.OccupancyRate)
	require.NotNil(t, r.Overtime)
}

func TestSweepOvertimeNotifies(t *testing.T) {
	notes := &captureNotifier{}
	now := time.Date(2024, 5, 26, 9, 0, 0, 0, time.UTC)
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithNotifier(notes),
		WithClock(ClockFunc(func() time.Time { return now })),
	)
	over := svc.SweepOvertime(context.Background())
	require.Len(t, over, 1)
	require.Len(t, notes.notes, 1)
	require.Equal(t, KindOvertime, notes.notes[0].Kind)
	require.Equal(t, domain.LevelWarning, notes.notes[0].Level)
	require.Equal(t, "g1", notes.notes[0].EntityID)
	require.Equal(t, svc.Report().GeneratedAt, now)
}
