package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalendarError_Is(t *testing.T) {
	err := InvalidInterval("start after end")
	assert.True(t, stderrors.Is(err, ErrInvalidInterval))
	assert.False(t, stderrors.Is(err, ErrInvalidRange))

	wrapped := fmt.Errorf("scan: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrInvalidInterval))
	assert.True(t, IsCode(wrapped, ErrCodeInvalidInterval))
}

func TestCalendarError_ErrorString(t *testing.T) {
	assert.Equal(t, "[EVENT_NOT_FOUND] event not found: ev-1", EventNotFound("ev-1").Error())

	cause := stderrors.New("connection refused")
	err := RepositoryFailure("failed to fetch events", cause)
	assert.Equal(t, "[REPOSITORY_FAILURE] failed to fetch events: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestRepositoryFailure_KeepsContextCause(t *testing.T) {
	err := RepositoryFailure("fetch timed out", Timeout("operation deadline exceeded", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrRepositoryFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeRepositoryFailure, GetCodeFromError(err, ErrCodeInvalidArgument))
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, FromContext(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeContextCanceled, FromContext(fmt.Errorf("fetch: %w", context.Canceled)).Code)
	assert.Nil(t, FromContext(stderrors.New("boom")))
}

func TestScheduleConflict_Context(t *testing.T) {
	err := ScheduleConflict(2)
	assert.Equal(t, 2, err.Context["conflict_count"])
	assert.Equal(t, ErrCodeInvalidArgument, GetCodeFromError(stderrors.New("plain"), ErrCodeInvalidArgument))
}
