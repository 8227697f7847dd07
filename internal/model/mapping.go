package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Target-field tags a spreadsheet column can be bound to.
const (
	FieldStudentID   = "student_id"
	FieldObservation = "observation"

	evalFieldPrefix = "eval:"
)

// EvaluationField builds the field tag binding a column to an evaluation.
func EvaluationField(evaluationID int64) string {
	return fmt.Sprintf("%s%d", evalFieldPrefix, evaluationID)
}

// ColumnMapping binds one source-column label to a target-field tag.
type ColumnMapping struct {
	Column string `json:"column"`
	Field  string `json:"field"`
}

// MappingConfig is the ordered assignment of spreadsheet columns to target
// fields, supplied by the caller at preview time.
type MappingConfig struct {
	Columns []ColumnMapping `json:"columns"`
}

// StudentColumn returns the column label bound to the student identifier.
func (m MappingConfig) StudentColumn() (string, bool) {
	for _, c := range m.Columns {
		if c.Field == FieldStudentID {
			return c.Column, true
		}
	}
	return "", false
}

// ObservationColumn returns the column label bound to free-text observations.
func (m MappingConfig) ObservationColumn() (string, bool) {
	for _, c := range m.Columns {
		if c.Field == FieldObservation {
			return c.Column, true
		}
	}
	return "", false
}

// EvaluationColumn is a column bound to one evaluation, in mapping order.
type EvaluationColumn struct {
	Column       string
	EvaluationID int64
}

// EvaluationColumns returns the evaluation bindings in mapping order.
// Malformed evaluation tags are skipped.
func (m MappingConfig) EvaluationColumns() []EvaluationColumn {
	var cols []EvaluationColumn
	for _, c := range m.Columns {
		if !strings.HasPrefix(c.Field, evalFieldPrefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(c.Field, evalFieldPrefix), 10, 64)
		if err != nil {
			continue
		}
		cols = append(cols, EvaluationColumn{Column: c.Column, EvaluationID: id})
	}
	return cols
}
