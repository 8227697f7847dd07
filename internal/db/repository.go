package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"grade-import-service/internal/model"
)

// Repository persists drafts, grades, and per-row commit markers. Markers are
// keyed (draft_id, student_id, evaluation_id) and written in the same
// transaction as the grade they cover, so a retried confirm can skip rows
// already durably written.
type Repository interface {
	CreateDraft(ctx context.Context, draft *model.ImportDraft) error
	GetDraft(ctx context.Context, id string) (*model.ImportDraft, error)
	SetDraftPreviewed(ctx context.Context, id string, mapping *model.MappingConfig) error
	SetDraftStatus(ctx context.Context, id string, status model.DraftStatus) error
	ListExpiredDrafts(ctx context.Context, cutoff time.Time, limit int) ([]model.ImportDraft, error)

	CommittedKeys(ctx context.Context, draftID string) (map[string]struct{}, error)
	CommitGrade(ctx context.Context, draftID string, scope model.Scope, grade model.Grade) error

	ReadGrades(ctx context.Context, scope model.Scope) ([]model.Grade, error)
	ReplaceGrades(ctx context.Context, scope model.Scope, grades []model.Grade) error
}

// CommitKey builds the marker key for one accepted cell.
func CommitKey(studentID string, evaluationID int64) string {
	return fmt.Sprintf("%s|%d", studentID, evaluationID)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateDraft(ctx context.Context, draft *model.ImportDraft) error {
	query := `INSERT INTO import_drafts
		(id, period_id, subject_id, course_id, parallel_id, blob_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.Scope.PeriodID, draft.Scope.SubjectID, draft.Scope.CourseID,
		draft.Scope.ParallelID, draft.BlobKey, draft.Status, draft.CreatedAt)
	return err
}

func (r *repository) GetDraft(ctx context.Context, id string) (*model.ImportDraft, error) {
	query := `SELECT id, period_id, subject_id, course_id, parallel_id, blob_key, status, last_mapping, created_at
		FROM import_drafts WHERE id = ?`

	var draft model.ImportDraft
	var mapping sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&draft.ID, &draft.Scope.PeriodID, &draft.Scope.SubjectID, &draft.Scope.CourseID,
		&draft.Scope.ParallelID, &draft.BlobKey, &draft.Status, &mapping, &draft.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mapping.Valid {
		var m model.MappingConfig
		if err := json.Unmarshal([]byte(mapping.String), &m); err != nil {
			return nil, fmt.Errorf("corrupt stored mapping for draft %s: %w", id, err)
		}
		draft.LastMapping = &m
	}

	return &draft, nil
}

func (r *repository) SetDraftPreviewed(ctx context.Context, id string, mapping *model.MappingConfig) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	query := `UPDATE import_drafts SET status = ?, last_mapping = ?, updated_at = NOW()
		WHERE id = ? AND status IN (?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		model.DraftStatusPreviewed, string(data), id,
		model.DraftStatusReceived, model.DraftStatusPreviewed)
	return err
}

func (r *repository) SetDraftStatus(ctx context.Context, id string, status model.DraftStatus) error {
	query := `UPDATE import_drafts SET status = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *repository) ListExpiredDrafts(ctx context.Context, cutoff time.Time, limit int) ([]model.ImportDraft, error) {
	query := `SELECT id, period_id, subject_id, course_id, parallel_id, blob_key, status, created_at
		FROM import_drafts
		WHERE status IN (?, ?) AND created_at < ?
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query,
		model.DraftStatusReceived, model.DraftStatusPreviewed, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []model.ImportDraft
	for rows.Next() {
		var draft model.ImportDraft
		err := rows.Scan(&draft.ID, &draft.Scope.PeriodID, &draft.Scope.SubjectID,
			&draft.Scope.CourseID, &draft.Scope.ParallelID, &draft.BlobKey,
			&draft.Status, &draft.CreatedAt)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

func (r *repository) CommittedKeys(ctx context.Context, draftID string) (map[string]struct{}, error) {
	query := `SELECT student_id, evaluation_id FROM import_commits WHERE draft_id = ?`

	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var studentID string
		var evaluationID int64
		if err := rows.Scan(&studentID, &evaluationID); err != nil {
			return nil, err
		}
		keys[CommitKey(studentID, evaluationID)] = struct{}{}
	}
	return keys, rows.Err()
}

// CommitGrade writes one accepted cell and its commit marker atomically. The
// grade upsert is last-write-wins on the scope.
func (r *repository) CommitGrade(ctx context.Context, draftID string, scope model.Scope, grade model.Grade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	markerQuery := `INSERT IGNORE INTO import_commits (draft_id, student_id, evaluation_id)
		VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, markerQuery, draftID, grade.StudentID, grade.EvaluationID); err != nil {
		return err
	}

	if err := upsertGrade(ctx, tx, scope, grade); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) ReadGrades(ctx context.Context, scope model.Scope) ([]model.Grade, error) {
	query := `SELECT student_id, evaluation_id, value FROM grades
		WHERE period_id = ? AND subject_id = ? AND course_id = ? AND parallel_id <=> ?`

	rows, err := r.db.QueryContext(ctx, query,
		scope.PeriodID, scope.SubjectID, scope.CourseID, scope.ParallelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.Grade
	for rows.Next() {
		var grade model.Grade
		if err := rows.Scan(&grade.StudentID, &grade.EvaluationID, &grade.Value); err != nil {
			return nil, err
		}
		grades = append(grades, grade)
	}
	return grades, rows.Err()
}

func (r *repository) ReplaceGrades(ctx context.Context, scope model.Scope, grades []model.Grade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, grade := range grades {
		if err := upsertGrade(ctx, tx, scope, grade); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertGrade(ctx context.Context, tx *sql.Tx, scope model.Scope, grade model.Grade) error {
	query := `INSERT INTO grades
		(period_id, subject_id, course_id, parallel_id, student_id, evaluation_id, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = NOW()`

	_, err := tx.ExecContext(ctx, query,
		scope.PeriodID, scope.SubjectID, scope.CourseID, scope.ParallelID,
		grade.StudentID, grade.EvaluationID, grade.Value)
	return err
}
