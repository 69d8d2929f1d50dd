package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := stderrors.New("quota exceeded")
	err := Wrap(ErrPersistFailed, cause)

	assert.Equal(t, "[4000] Failed to save files to storage: quota exceeded", err.Error())
	assert.True(t, stderrors.Is(err, cause))

	wrapped := fmt.Errorf("add record: %w", err)
	appErr, ok := GetAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrPersistFailed, appErr.Code)
	assert.True(t, HasCode(wrapped, ErrPersistFailed))
	assert.False(t, HasCode(wrapped, ErrRecordNotFound))

	_, ok = GetAppError(cause)
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "File not found", GetErrorMessage(ErrRecordNotFound))
	assert.Equal(t, "文件未找到", GetErrorMessageWithLang(ErrRecordNotFound, "zh-CN"))
	assert.Equal(t, "Unknown Error", GetErrorMessage(ErrorCode(9999)))

	err := NewWithDetails(ErrFileTypeNotAllowed, "Notes.txt")
	assert.Equal(t, "[2001] Only .java files allowed: Notes.txt", err.Error())
}
