package model

import "time"

type DraftStatus string

const (
	DraftStatusReceived  DraftStatus = "RECEIVED"
	DraftStatusPreviewed DraftStatus = "PREVIEWED"
	DraftStatusConfirmed DraftStatus = "CONFIRMED"
	DraftStatusExpired   DraftStatus = "EXPIRED"
)

// Scope bounds which students and evaluations are eligible for an import.
type Scope struct {
	PeriodID   int64  `json:"period_id" db:"period_id"`
	SubjectID  int64  `json:"subject_id" db:"subject_id"`
	CourseID   int64  `json:"course_id" db:"course_id"`
	ParallelID *int64 `json:"parallel_id,omitempty" db:"parallel_id"`
}

// Complete reports whether all mandatory scope fields are set. Parallel is
// optional.
func (s Scope) Complete() bool {
	return s.PeriodID != 0 && s.SubjectID != 0 && s.CourseID != 0
}

// ImportDraft is an uploaded, not-yet-committed batch of tabular data.
type ImportDraft struct {
	ID          string         `json:"id" db:"id"`
	Scope       Scope          `json:"scope"`
	BlobKey     string         `json:"-" db:"blob_key"`
	Status      DraftStatus    `json:"status" db:"status"`
	LastMapping *MappingConfig `json:"last_mapping,omitempty" db:"last_mapping"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// ExpiredBy reports whether the draft has outlived the retention window at
// the given instant. Confirmed drafts never expire.
func (d *ImportDraft) ExpiredBy(retention time.Duration, now time.Time) bool {
	if d.Status == DraftStatusConfirmed {
		return false
	}
	return now.After(d.CreatedAt.Add(retention))
}
