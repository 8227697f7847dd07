// Package importer implements the three-phase bulk grade import pipeline:
// upload, repeatable preview, terminal confirm.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"grade-import-service/internal/config"
	"grade-import-service/internal/db"
	"grade-import-service/internal/lock"
	"grade-import-service/internal/logger"
	"grade-import-service/internal/model"
	"grade-import-service/internal/roster"
	"grade-import-service/internal/sheet"
	"grade-import-service/internal/storage"
	apperrors "grade-import-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	cfg    *config.Config
	repo   db.Repository
	blobs  storage.Storage
	roster roster.Provider
	locker lock.Locker
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(
	cfg *config.Config,
	repo db.Repository,
	blobs storage.Storage,
	rosterProvider roster.Provider,
	locker lock.Locker,
) *Service {
	return &Service{
		cfg:    cfg,
		repo:   repo,
		blobs:  blobs,
		roster: rosterProvider,
		locker: locker,
		now:    time.Now,
		log:    logger.Get(),
	}
}

// Submit stores the raw file opaquely and opens a draft in RECEIVED. The file
// is not parsed here; parsing happens at preview under a caller-supplied
// mapping.
func (s *Service) Submit(ctx context.Context, scope model.Scope, file io.Reader) (*model.ImportDraft, error) {
	if !scope.Complete() {
		return nil, apperrors.New(apperrors.CodeScopeIncomplete, "period, subject and course are required")
	}

	draft := &model.ImportDraft{
		ID:        uuid.NewString(),
		Scope:     scope,
		Status:    model.DraftStatusReceived,
		CreatedAt: s.now().UTC(),
	}
	draft.BlobKey = storage.BlobKey(draft.ID)

	if err := s.blobs.Upload(ctx, draft.BlobKey, file); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to store raw file")
	}
	if err := s.repo.CreateDraft(ctx, draft); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to create draft")
	}

	s.log.Info().Str("draft_id", draft.ID).Int64("course_id", scope.CourseID).Msg("Draft received")
	return draft, nil
}

// Preview parses the draft's raw file under the given mapping and returns the
// row-by-row validation outcome. It writes no grades, may be re-invoked with
// a different mapping, and fully replaces any previous preview.
func (s *Service) Preview(ctx context.Context, draftID string, mapping model.MappingConfig) (*model.PreviewResult, error) {
	draft, err := s.loadDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status == model.DraftStatusConfirmed {
		return nil, apperrors.Newf(apperrors.CodeAlreadyConfirmed, "draft %s is already confirmed", draftID)
	}
	if _, ok := mapping.StudentColumn(); !ok {
		return nil, apperrors.New(apperrors.CodeMappingNotSet, "mapping does not bind a student_id column")
	}

	data, err := s.readBlob(ctx, draft)
	if err != nil {
		return nil, err
	}

	var result *model.PreviewResult
	table, err := sheet.Parse(data)
	if err != nil {
		// An unreadable file is a structural outcome, not a failed call: the
		// operator sees it in the preview and can re-upload.
		result = emptyPreviewResult()
		result.Errors = append(result.Errors, model.RowIndexError{
			RowIndex: 0,
			Message:  fmt.Sprintf("unreadable file: %v", err),
		})
	} else {
		v, err := s.validate(ctx, draft.Scope, mapping, table)
		if err != nil {
			return nil, err
		}
		result = v.result
	}

	if err := s.repo.SetDraftPreviewed(ctx, draftID, &mapping); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to persist mapping")
	}

	s.log.Info().
		Str("draft_id", draftID).
		Int("valid", result.ValidCount).
		Int("invalid", result.InvalidCount).
		Msg("Draft previewed")
	return result, nil
}

// Confirm re-derives the validation from the stored mapping and raw file,
// then commits accepted rows in file order. Each accepted cell is written
// together with its commit marker, so a retry after a mid-stream storage
// failure skips rows already durably written instead of double-committing.
func (s *Service) Confirm(ctx context.Context, draftID string) (*model.CommitResult, error) {
	draft, err := s.loadDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status == model.DraftStatusConfirmed {
		return nil, apperrors.Newf(apperrors.CodeAlreadyConfirmed, "draft %s is already confirmed", draftID)
	}
	if draft.LastMapping == nil {
		return nil, apperrors.Newf(apperrors.CodeMappingNotSet, "draft %s has no previewed mapping", draftID)
	}

	acquired, err := s.locker.Acquire(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to acquire confirm lease")
	}
	if !acquired {
		return nil, apperrors.Newf(apperrors.CodeConflict, "another confirm is in flight for draft %s", draftID)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), draftID); err != nil {
			s.log.Error().Err(err).Str("draft_id", draftID).Msg("Failed to release confirm lease")
		}
	}()

	// Re-read under the lease: a confirm that completed while we waited for
	// the draft row must surface as AlreadyConfirmed, not re-run.
	draft, err = s.loadDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status == model.DraftStatusConfirmed {
		return nil, apperrors.Newf(apperrors.CodeAlreadyConfirmed, "draft %s is already confirmed", draftID)
	}

	data, err := s.readBlob(ctx, draft)
	if err != nil {
		return nil, err
	}
	table, err := sheet.Parse(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "stored file is unreadable")
	}

	v, err := s.validate(ctx, draft.Scope, *draft.LastMapping, table)
	if err != nil {
		return nil, err
	}
	// The stored mapping no longer binding the sheet's columns means the file
	// or mapping drifted since preview. Finalizing an empty commit here would
	// silently drop every row, so abort and leave the draft previewed.
	if len(v.result.Errors) > 0 {
		return nil, apperrors.Newf(apperrors.CodeMappingNotSet,
			"stored mapping no longer matches the file: %s", v.result.Errors[0].Message)
	}

	committed, err := s.repo.CommittedKeys(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to load commit markers")
	}

	committedRows := 0
	for _, row := range v.accepted {
		if err := ctx.Err(); err != nil {
			// Cancellation between rows: already-written rows stay durable,
			// the draft stays PREVIEWED, and a retry skips them. Surfaced as
			// an aborted partial commit so the handler maps it like any other
			// mid-stream interruption.
			return nil, apperrors.Wrap(apperrors.CodeStorageError, err,
				fmt.Sprintf("confirm interrupted after %d fully committed rows", committedRows))
		}
		for _, ec := range v.evalCols {
			if _, done := committed[db.CommitKey(row.studentID, ec.EvaluationID)]; done {
				continue
			}
			grade := model.Grade{
				StudentID:    row.studentID,
				EvaluationID: ec.EvaluationID,
				Value:        row.values[ec.EvaluationID],
			}
			if err := s.repo.CommitGrade(ctx, draftID, draft.Scope, grade); err != nil {
				return nil, apperrors.Wrap(apperrors.CodeStorageError, err,
					fmt.Sprintf("commit failed after %d fully committed rows", committedRows))
			}
		}
		committedRows++
	}

	if err := s.repo.SetDraftStatus(ctx, draftID, model.DraftStatusConfirmed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to finalize draft")
	}

	result := &model.CommitResult{
		CommittedCount: committedRows,
		RejectedCount:  v.result.InvalidCount,
		Observations:   v.result.Observations,
		Errors:         rejectionErrors(v.result.Rows),
	}

	s.log.Info().
		Str("draft_id", draftID).
		Int("committed", result.CommittedCount).
		Int("rejected", result.RejectedCount).
		Msg("Draft confirmed")
	return result, nil
}

// ReadMatrix returns the roster x evaluation grade view for a scope.
func (s *Service) ReadMatrix(ctx context.Context, scope model.Scope) (*model.GradeMatrix, error) {
	if !scope.Complete() {
		return nil, apperrors.New(apperrors.CodeScopeIncomplete, "period, subject and course are required")
	}

	students, err := s.roster.Students(ctx, scope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "roster lookup failed")
	}
	evaluations, err := s.roster.Evaluations(ctx, scope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "evaluation lookup failed")
	}
	grades, err := s.repo.ReadGrades(ctx, scope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to read grades")
	}

	matrix := &model.GradeMatrix{Students: students, Evaluations: evaluations, Grades: grades}
	if matrix.Students == nil {
		matrix.Students = []model.Student{}
	}
	if matrix.Evaluations == nil {
		matrix.Evaluations = []model.Evaluation{}
	}
	if matrix.Grades == nil {
		matrix.Grades = []model.Grade{}
	}
	return matrix, nil
}

// WriteMatrix replaces grade values for a scope, last-write-wins. Values are
// held to the same [0,100]-or-null constraint as the import path.
func (s *Service) WriteMatrix(ctx context.Context, scope model.Scope, grades []model.Grade) error {
	if !scope.Complete() {
		return apperrors.New(apperrors.CodeScopeIncomplete, "period, subject and course are required")
	}
	for _, grade := range grades {
		if !model.GradeValueValid(grade.Value) {
			return apperrors.Newf(apperrors.CodeInvalidRange,
				"value %v for student %s is outside [0,100]", *grade.Value, grade.StudentID)
		}
	}
	if err := s.repo.ReplaceGrades(ctx, scope, grades); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, err, "failed to write grades")
	}
	return nil
}

func (s *Service) loadDraft(ctx context.Context, id string) (*model.ImportDraft, error) {
	draft, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeDraftNotFound, "draft %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to load draft")
	}
	// Expiry is enforced at read time as well, so a stale draft is unusable
	// even before the retention sweeper has marked it.
	if draft.Status == model.DraftStatusExpired || draft.ExpiredBy(s.cfg.Import.Retention, s.now()) {
		return nil, apperrors.Newf(apperrors.CodeDraftExpired, "draft %s has expired", id)
	}
	return draft, nil
}

func (s *Service) readBlob(ctx context.Context, draft *model.ImportDraft) ([]byte, error) {
	reader, err := s.blobs.Download(ctx, draft.BlobKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to download raw file")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "failed to read raw file")
	}
	return data, nil
}
