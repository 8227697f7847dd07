package model

// Grade is one stored value for a student under an evaluation. A nil value
// means the grade is explicitly empty. Implicitly versioned by last write on
// the scope.
type Grade struct {
	StudentID    string   `json:"student_id" db:"student_id"`
	EvaluationID int64    `json:"evaluation_id" db:"evaluation_id"`
	Value        *float64 `json:"value" db:"value"`
}

// GradeValueValid reports whether v is an acceptable stored grade: nil or a
// number in [0,100]. Values are never clamped or coerced.
func GradeValueValid(v *float64) bool {
	if v == nil {
		return true
	}
	return *v >= 0 && *v <= 100
}

// GradeMatrix is the roster x evaluation view of a scope's grades.
type GradeMatrix struct {
	Students    []Student    `json:"students"`
	Evaluations []Evaluation `json:"evaluations"`
	Grades      []Grade      `json:"grades"`
}
