package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseHeaderAndRows(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{" Student ", "Score"},
		{"S001", 85},
		{"S002", "92.5"},
	})

	table, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Student", "Score"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "S001", table.Rows[0][0])
	assert.Equal(t, "92.5", table.Rows[1][1])
}

func TestColumnIndexCaseInsensitive(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Student", "Score"},
	})

	table, err := Parse(data)
	require.NoError(t, err)

	idx, ok := table.ColumnIndex("student")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = table.ColumnIndex(" SCORE ")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = table.ColumnIndex("missing")
	assert.False(t, ok)
}

func TestCellShortRow(t *testing.T) {
	// A row shorter than the header is legal: missing cells read as empty.
	row := []string{"S001"}
	assert.Equal(t, "S001", Cell(row, 0))
	assert.Equal(t, "", Cell(row, 1))
	assert.Equal(t, "", Cell(row, -1))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("definitely not a spreadsheet"))
	require.Error(t, err)
}

func TestParseHeaderOnly(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Student", "Score"},
	})

	table, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}
