// Package export renders state as spreadsheets for the front desk.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"zenstay/pkg/domain"
)

// Sheet names of the workbook built by GuestRegisterXLSX.
const (
	GuestSheet = "住客登记"
	RoomSheet  = "房态"
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	guestHeader = []string{"姓名", "性别", "民族", "电话", "身份证号", "入住日期", "退房日期", "床位", "人数", "已付金额", "状态"}
	guestWidths = []float64{12, 6, 8, 16, 22, 12, 12, 24, 6, 12, 8}
	roomHeader  = []string{"房间号", "房型", "性别限制", "床位", "床位状态", "清洁状态", "单价", "住客"}
	roomWidths  = []float64{10, 10, 10, 10, 10, 10, 10, 12}
)

// GuestRegisterXLSX renders every guest, in stored order, plus one row per
// bed on a second sheet.
func GuestRegisterXLSX(state domain.State) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", GuestSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RoomSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, GuestSheet, guestHeader, guestWidths, headerStyle); err != nil {
		return nil, err
	}
	for i, g := range state.Guests {
		if err := writeRow(f, GuestSheet, i+2, guestRow(state, g)); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, RoomSheet, roomHeader, roomWidths, headerStyle); err != nil {
		return nil, err
	}
	row := 2
	for _, room := range state.Rooms {
		for _, bed := range room.Beds {
			guestName := ""
			if bed.Occupied() {
				if g, _, ok := state.FindGuest(bed.GuestID); ok {
					guestName = g.Name
				}
			}
			price, _ := bed.PricePerNight.Float64()
			values := []any{
				room.Number,
				room.Type.Label(),
				room.GenderPolicy.Label(),
				bed.Name,
				bed.Status.Label(),
				bed.CleaningStatus.Label(),
				price,
				guestName,
			}
			if err := writeRow(f, RoomSheet, row, values); err != nil {
				return nil, err
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func guestRow(state domain.State, g domain.Guest) []any {
	labels := make([]string, 0, len(g.BedIDs))
	active := false
	for _, bedID := range g.BedIDs {
		bed, ref, ok := state.FindBed(bedID)
		if !ok {
			labels = append(labels, bedID)
			continue
		}
		labels = append(labels, state.Rooms[ref.Room].Number+" "+bed.Name)
		if bed.Occupied() && bed.GuestID == g.ID {
			active = true
		}
	}
	status := "已退房"
	if active {
		status = "在住"
	}
	paid, _ := g.TotalPaid.Float64()
	return []any{
		g.Name,
		g.Gender.Label(),
		g.Ethnicity,
		g.Phone,
		g.IDNumber,
		g.CheckIn,
		g.CheckOut,
		strings.Join(labels, "、"),
		g.PeopleCount,
		paid,
		status,
	}
}

func writeHeader(f *excelize.File, sheet string, header []string, widths []float64, style int) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("set column width: %w", err)
			}
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
