package roster

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"hostelcore/internal/core"
	"hostelcore/pkg/domain"

	"github.com/xuri/excelize/v2"
)

// Format identifies a roster artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat validates a requested format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported roster format %q", raw)
	}
}

// Header lists the roster columns in order.
var Header = []string{"Room", "Capacity", "Floor", "Cohort Year", "Occupants", "Name", "Roll Number", "Branch", "Year"}

// Row is one line of the roster: an occupant, or an empty room with blank
// occupant columns.
type Row struct {
	RoomNumber string
	Capacity   int
	Floor      int
	CohortYear int
	Occupants  int
	Name       string
	RollNumber string
	Branch     string
	Year       int
}

func (r Row) values() []any {
	vals := []any{r.RoomNumber, r.Capacity, optional(r.Floor), optional(r.CohortYear), r.Occupants, r.Name, r.RollNumber, r.Branch, optional(r.Year)}
	return vals
}

func (r Row) strings() []string {
	out := make([]string, 0, len(Header))
	for _, v := range r.values() {
		switch v := v.(type) {
		case int:
			out = append(out, strconv.Itoa(v))
		case string:
			out = append(out, v)
		default:
			out = append(out, "")
		}
	}
	return out
}

// optional maps zero to an empty cell.
func optional(n int) any {
	if n == 0 {
		return ""
	}
	return n
}

// Rows flattens room details into roster lines in registry order.
func Rows(details []core.RoomDetail) []Row {
	var rows []Row
	for _, d := range details {
		base := Row{RoomNumber: d.RoomNumber, Capacity: d.Capacity, Occupants: len(d.Occupants)}
		if floor, err := domain.FloorOf(d.RoomNumber); err == nil {
			base.Floor = floor
			base.CohortYear, _ = domain.YearForFloor(floor)
		}
		if len(d.Residents) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, res := range d.Residents {
			row := base
			row.Name = res.Name
			row.RollNumber = res.RollNumber
			row.Branch = res.Branch
			row.Year = res.Year
			rows = append(rows, row)
		}
	}
	return rows
}

// RenderCSV encodes rows with a header line.
func RenderCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row.strings()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const sheetName = "Roster"

var columnWidths = []float64{10, 10, 8, 12, 11, 28, 18, 10, 8}

// RenderXLSX encodes rows as a single-sheet workbook with a frozen, styled
// header row.
func RenderXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

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
		return nil, fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row.values()
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
