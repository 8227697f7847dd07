package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesShapePriority(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantIDs []string
	}{
		{
			name:    "wrapped envelope",
			payload: `{"data": {"students": [{"id": "S001"}, {"id": "S002"}], "total": 2}}`,
			wantIDs: []string{"S001", "S002"},
		},
		{
			name:    "legacy flat object",
			payload: `{"students": [{"id": "S001"}], "total": 1}`,
			wantIDs: []string{"S001"},
		},
		{
			name:    "bare array",
			payload: `[{"id": "S001"}]`,
			wantIDs: []string{"S001"},
		},
		{
			// The priority order is part of the contract: when a payload
			// matches both the wrapped and the flat shape, wrapped wins.
			name:    "wrapped wins over flat",
			payload: `{"data": {"students": [{"id": "FROM_WRAPPED"}]}, "students": [{"id": "FROM_FLAT"}]}`,
			wantIDs: []string{"FROM_WRAPPED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := Students([]byte(tt.payload))
			require.NoError(t, err)
			ids := make([]string, len(students))
			for i, st := range students {
				ids[i] = st.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSeriesRejectsUnknownShape(t *testing.T) {
	_, err := Students([]byte(`{"payload": 42}`))
	require.Error(t, err)

	_, err = Students([]byte(`"just a string"`))
	require.Error(t, err)
}

func TestStudentsTolerantFields(t *testing.T) {
	payload := `{"students": [
		{"id": 1001, "name": "Ana Flores"},
		{"student_id": "S002", "display_name": "Bruno Mamani"},
		{"id": "S003"},
		{"name": "no identifier at all"}
	]}`

	students, err := Students([]byte(payload))
	require.NoError(t, err)
	require.Len(t, students, 3)

	// Numeric ids are stringified, "name" backs a missing "display_name".
	assert.Equal(t, "1001", students[0].ID)
	assert.Equal(t, "Ana Flores", students[0].DisplayName)
	assert.Equal(t, "S002", students[1].ID)
	assert.Equal(t, "Bruno Mamani", students[1].DisplayName)
	// Optional fields default to empty instead of failing.
	assert.Equal(t, "", students[2].DisplayName)
}

func TestEvaluationsTolerantFields(t *testing.T) {
	payload := `{"data": {"evaluations": [
		{"id": 7, "name": "Exam 1", "weight": 0.5},
		{"evaluation_id": "8", "title": "Homework"},
		{"name": "no id, skipped"}
	]}}`

	evaluations, err := Evaluations([]byte(payload))
	require.NoError(t, err)
	require.Len(t, evaluations, 2)

	assert.Equal(t, int64(7), evaluations[0].ID)
	assert.Equal(t, "Exam 1", evaluations[0].Name)
	assert.Equal(t, 0.5, evaluations[0].Weight)

	assert.Equal(t, int64(8), evaluations[1].ID)
	assert.Equal(t, "Homework", evaluations[1].Name)
	assert.Equal(t, 0.0, evaluations[1].Weight)
}

func TestSeriesItemMustBeObject(t *testing.T) {
	_, err := Students([]byte(`{"students": ["S001"]}`))
	require.Error(t, err)
}
