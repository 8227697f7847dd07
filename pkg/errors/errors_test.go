package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeDraftNotFound, "draft gone")
	assert.Equal(t, CodeDraftNotFound, CodeOf(err))
	assert.True(t, HasCode(err, CodeDraftNotFound))
	assert.False(t, HasCode(err, CodeConflict))

	// Codes survive wrapping with %w.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, CodeDraftNotFound, CodeOf(wrapped))

	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Wrap(CodeStorageError, cause, "failed to write grades")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "StorageError")
	assert.Contains(t, err.Error(), "disk on fire")
}
