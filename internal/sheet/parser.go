package sheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the raw tabular content of an uploaded file: one header row plus
// data rows, cells trimmed, nothing interpreted.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse reads the first worksheet of an xlsx payload into a Table. The file
// must carry at least a header row; an empty sheet is not an error and yields
// zero data rows.
func Parse(data []byte) (*Table, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no worksheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spreadsheet has no header row")
	}

	table := &Table{Header: trimAll(rows[0])}
	for _, row := range rows[1:] {
		table.Rows = append(table.Rows, trimAll(row))
	}
	return table, nil
}

// ColumnIndex resolves a column label to its header position,
// case-insensitively.
func (t *Table) ColumnIndex(label string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(label))
	for i, col := range t.Header {
		if strings.ToLower(col) == want {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value at idx in row, or "" when the row is shorter than
// the header. Short rows are legal: missing cells read as empty.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
