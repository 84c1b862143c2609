package roster

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hostelcore/internal/core"
	"hostelcore/pkg/domain"
)

func sampleDetails() []core.RoomDetail {
	return []core.RoomDetail{
		{
			Room: domain.Room{RoomNumber: "101", Capacity: 2, Occupants: []string{"a", "b"}},
			Residents: []core.OccupantSummary{
				{ID: "a", Name: "Asha", RollNumber: "R1", Branch: "CSE", Year: 1},
				{ID: "b", Name: "Bilal", RollNumber: "R2", Branch: "ECE", Year: 1},
			},
		},
		{Room: domain.Room{RoomNumber: "1001", Capacity: 3}},
	}
}

func TestRowsFlattenRooms(t *testing.T) {
	rows := Rows(sampleDetails())
	require.Len(t, rows, 3)
	require.Equal(t, Row{RoomNumber: "101", Capacity: 2, Floor: 1, CohortYear: 1, Occupants: 2, Name: "Asha", RollNumber: "R1", Branch: "CSE", Year: 1}, rows[0])
	require.Equal(t, "Bilal", rows[1].Name)
	require.Equal(t, Row{RoomNumber: "1001", Capacity: 3, Floor: 10, CohortYear: 2}, rows[2])
}

func TestRenderCSV(t *testing.T) {
	payload, err := RenderCSV(Rows(sampleDetails()))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, Header, records[0])
	require.Equal(t, []string{"101", "2", "1", "1", "2", "Asha", "R1", "CSE", "1"}, records[1])
	require.Equal(t, []string{"1001", "3", "10", "2", "0", "", "", "", ""}, records[3])
}

func TestRenderXLSX(t *testing.T) {
	payload, err := RenderXLSX(Rows(sampleDetails()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, Header, rows[0])
	require.Equal(t, "Bilal", rows[2][5])
	require.Equal(t, "1001", rows[3][0])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)
	require.Equal(t, "text/csv", FormatCSV.ContentType())

	_, err = ParseFormat("pdf")
	require.Error(t, err)
}
