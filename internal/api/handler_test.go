package api

import (
	"net/http"
	"testing"

	apperrors "grade-import-service/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code apperrors.Code
		want int
	}{
		{apperrors.CodeScopeIncomplete, http.StatusBadRequest},
		{apperrors.CodeMappingNotSet, http.StatusBadRequest},
		{apperrors.CodeInvalidRange, http.StatusBadRequest},
		{apperrors.CodeDraftNotFound, http.StatusNotFound},
		{apperrors.CodeDraftExpired, http.StatusGone},
		{apperrors.CodeAlreadyConfirmed, http.StatusConflict},
		{apperrors.CodeConflict, http.StatusConflict},
		{apperrors.CodeStorageError, http.StatusBadGateway},
		{apperrors.Code(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForCode(tt.code), "code %q", tt.code)
	}
}

func TestBuildScope(t *testing.T) {
	scope, err := buildScope("1", "2", "3", "")
	assert.NoError(t, err)
	assert.True(t, scope.Complete())
	assert.Nil(t, scope.ParallelID)

	scope, err = buildScope("1", "2", "3", "4")
	assert.NoError(t, err)
	if assert.NotNil(t, scope.ParallelID) {
		assert.Equal(t, int64(4), *scope.ParallelID)
	}

	// Missing mandatory fields parse to an incomplete scope; the service
	// rejects it with ScopeIncomplete.
	scope, err = buildScope("1", "", "3", "")
	assert.NoError(t, err)
	assert.False(t, scope.Complete())

	_, err = buildScope("not-a-number", "2", "3", "")
	assert.Error(t, err)
}
