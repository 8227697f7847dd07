package importer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"grade-import-service/internal/model"
	"grade-import-service/internal/sheet"
	apperrors "grade-import-service/pkg/errors"
)

// acceptedRow is a data row that passed validation with zero errors and is
// eligible for commit.
type acceptedRow struct {
	index     int
	studentID string
	values    map[int64]*float64
}

// evalColumn is a mapped evaluation column resolved against both the sheet
// header and the scope's evaluation definitions.
type evalColumn struct {
	EvaluationID int64
	headerIdx    int
}

type validation struct {
	result   *model.PreviewResult
	accepted []acceptedRow
	evalCols []evalColumn
}

// validate runs the full row-by-row pass over a parsed table under a mapping.
// It is deterministic: the same draft, mapping, and collaborator data always
// produce the same result, which is what lets confirm re-derive the preview
// instead of trusting a client-held copy.
func (s *Service) validate(ctx context.Context, scope model.Scope, mapping model.MappingConfig, table *sheet.Table) (*validation, error) {
	students, err := s.roster.Students(ctx, scope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "roster lookup failed")
	}
	evaluations, err := s.roster.Evaluations(ctx, scope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, err, "evaluation lookup failed")
	}

	byID := make(map[string]model.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	evalSet := make(map[int64]model.Evaluation, len(evaluations))
	for _, ev := range evaluations {
		evalSet[ev.ID] = ev
	}

	v := &validation{result: emptyPreviewResult()}
	res := v.result

	studentCol, ok := mapping.StudentColumn()
	if !ok {
		return nil, apperrors.New(apperrors.CodeMappingNotSet, "mapping does not bind a student_id column")
	}
	studentIdx, ok := table.ColumnIndex(studentCol)
	if !ok {
		// Without the identifier column no row can be validated at all.
		res.Errors = append(res.Errors, model.RowIndexError{
			RowIndex: 0,
			Message:  fmt.Sprintf("mapped column %q not found in header", studentCol),
		})
		return v, nil
	}

	obsIdx := -1
	if obsCol, ok := mapping.ObservationColumn(); ok {
		if idx, found := table.ColumnIndex(obsCol); found {
			obsIdx = idx
		} else {
			res.Observations = append(res.Observations,
				fmt.Sprintf("observation column %q not found in header", obsCol))
		}
	}

	for _, ec := range mapping.EvaluationColumns() {
		idx, found := table.ColumnIndex(ec.Column)
		if !found {
			res.Errors = append(res.Errors, model.RowIndexError{
				RowIndex: 0,
				Message:  fmt.Sprintf("mapped column %q not found in header", ec.Column),
			})
			continue
		}
		if _, known := evalSet[ec.EvaluationID]; !known {
			res.Observations = append(res.Observations,
				fmt.Sprintf("column %q is mapped to evaluation %d, which is not defined for this scope", ec.Column, ec.EvaluationID))
			continue
		}
		v.evalCols = append(v.evalCols, evalColumn{EvaluationID: ec.EvaluationID, headerIdx: idx})
	}

	seen := make(map[string]bool)
	for i, row := range table.Rows {
		pr := model.PreviewRow{
			StudentID: sheet.Cell(row, studentIdx),
			Values:    make(map[int64]*float64, len(v.evalCols)),
			RowErrors: []model.RowError{},
		}

		if pr.StudentID == "" {
			pr.RowErrors = append(pr.RowErrors, rowError(apperrors.CodeUnknownStudent, "empty student identifier"))
		} else if st, found := byID[pr.StudentID]; found {
			pr.DisplayName = st.DisplayName
		} else {
			pr.RowErrors = append(pr.RowErrors, rowError(apperrors.CodeUnknownStudent,
				fmt.Sprintf("student %q is not in the scope roster", pr.StudentID)))
		}

		for _, ec := range v.evalCols {
			raw := sheet.Cell(row, ec.headerIdx)
			if raw == "" {
				pr.Values[ec.EvaluationID] = nil
				continue
			}
			// ParseFloat also accepts "NaN" and "Inf" spellings; a grade
			// must be a finite number, so those are format errors.
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				pr.Values[ec.EvaluationID] = nil
				pr.RowErrors = append(pr.RowErrors, rowError(apperrors.CodeInvalidFormat,
					fmt.Sprintf("value %q is not numeric", raw)))
				continue
			}
			if value < 0 || value > 100 {
				pr.Values[ec.EvaluationID] = nil
				pr.RowErrors = append(pr.RowErrors, rowError(apperrors.CodeInvalidRange,
					fmt.Sprintf("value %s is outside [0,100]", raw)))
				continue
			}
			pr.Values[ec.EvaluationID] = &value
		}

		if obsIdx >= 0 {
			if obs := sheet.Cell(row, obsIdx); obs != "" {
				pr.Observation = &obs
			}
		}

		// Duplicate detection only applies to otherwise-accepted rows: the
		// first accepted occurrence in file order wins, later ones are
		// flagged and excluded.
		if len(pr.RowErrors) == 0 {
			if seen[pr.StudentID] {
				pr.RowErrors = append(pr.RowErrors, rowError(apperrors.CodeDuplicateStudent,
					fmt.Sprintf("student %q already has an accepted row in this file", pr.StudentID)))
			} else {
				seen[pr.StudentID] = true
				v.accepted = append(v.accepted, acceptedRow{
					index:     i,
					studentID: pr.StudentID,
					values:    pr.Values,
				})
			}
		}

		if pr.Valid() {
			res.ValidCount++
		} else {
			res.InvalidCount++
		}
		res.Rows = append(res.Rows, pr)
	}

	return v, nil
}

func emptyPreviewResult() *model.PreviewResult {
	return &model.PreviewResult{
		Rows:         []model.PreviewRow{},
		Observations: []string{},
		Errors:       []model.RowIndexError{},
	}
}

func rowError(code apperrors.Code, message string) model.RowError {
	return model.RowError{Code: string(code), Message: message}
}

// rejectionErrors collapses each invalid row into one commit-result entry,
// message carrying the taxonomy codes.
func rejectionErrors(rows []model.PreviewRow) []model.RowIndexError {
	errs := []model.RowIndexError{}
	for i, row := range rows {
		if row.Valid() {
			continue
		}
		codes := make([]string, 0, len(row.RowErrors))
		for _, re := range row.RowErrors {
			codes = append(codes, re.Code)
		}
		errs = append(errs, model.RowIndexError{RowIndex: i, Message: strings.Join(codes, "; ")})
	}
	return errs
}
