package model

// RowError is one row-level validation outcome. Code is a stable taxonomy
// code; Message adds human-readable detail.
type RowError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RowIndexError attributes an error message to a 0-based data-row index
// (header row excluded).
type RowIndexError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
}

// PreviewRow is the validation outcome for one parsed data row.
type PreviewRow struct {
	StudentID   string             `json:"student_id"`
	DisplayName string             `json:"display_name"`
	Values      map[int64]*float64 `json:"values"`
	RowErrors   []RowError         `json:"row_errors"`
	Observation *string            `json:"observation"`
}

// Valid reports whether the row carries zero row-level errors and is
// therefore eligible for commit.
func (r PreviewRow) Valid() bool {
	return len(r.RowErrors) == 0
}

// PreviewResult is the dry-run outcome of validating a draft under a mapping.
// Errors holds structural problems (header mismatches, unreadable file), not
// row validation outcomes.
type PreviewResult struct {
	Rows         []PreviewRow    `json:"rows"`
	ValidCount   int             `json:"valid_count"`
	InvalidCount int             `json:"invalid_count"`
	Observations []string        `json:"observations"`
	Errors       []RowIndexError `json:"errors"`
}

// CommitResult reports the terminal commit outcome. Errors holds one entry
// per rejected row.
type CommitResult struct {
	CommittedCount int             `json:"committed_count"`
	RejectedCount  int             `json:"rejected_count"`
	Observations   []string        `json:"observations"`
	Errors         []RowIndexError `json:"errors"`
}
