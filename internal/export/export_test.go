package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"zenstay/pkg/domain"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestGuestRegisterXLSXSeedState(t *testing.T) {
	data, err := GuestRegisterXLSX(domain.SeedState())
	require.NoError(t, err)

	f := openWorkbook(t, data)
	require.Equal(t, []string{GuestSheet, RoomSheet}, f.GetSheetList())

	guests, err := f.GetRows(GuestSheet)
	require.NoError(t, err)
	require.Len(t, guests, 2)
	require.Equal(t, guestHeader, guests[0])
	row := guests[1]
	require.Equal(t, "张伟", row[0])
	require.Equal(t, "男", row[1])
	require.Equal(t, "101 床位 A", row[7])
	require.Equal(t, "250", row[9])
	require.Equal(t, "在住", row[10])

	rooms, err := f.GetRows(RoomSheet)
	require.NoError(t, err)
	require.Len(t, rooms, 7)
	require.Equal(t, []string{"101", "标准间", "男女混住", "床位 A", "已入住", "已清洁", "50", "张伟"}, rooms[1])
}

func TestGuestRegisterXLSXMarksCheckedOutGuests(t *testing.T) {
	state := domain.SeedState()
	state.Rooms[0].Beds[0].Status = domain.BedAvailable
	state.Rooms[0].Beds[0].GuestID = ""
	state.Guests[0].BedIDs = append(state.Guests[0].BedIDs, "gone")

	data, err := GuestRegisterXLSX(state)
	require.NoError(t, err)
	guests, err := openWorkbook(t, data).GetRows(GuestSheet)
	require.NoError(t, err)
	require.Equal(t, "101 床位 A、gone", guests[1][7])
	require.Equal(t, "已退房", guests[1][10])
}

func TestGuestRegisterXLSXEmptyState(t *testing.T) {
	data, err := GuestRegisterXLSX(domain.State{Settings: domain.DefaultSettings()})
	require.NoError(t, err)
	f := openWorkbook(t, data)
	rooms, err := f.GetRows(RoomSheet)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}
