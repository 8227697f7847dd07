package model

// Student is one roster entry for a scope, as served by the enrollment
// collaborator.
type Student struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Evaluation is one evaluation definition for a scope (an exam, a task, ...).
type Evaluation struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}
