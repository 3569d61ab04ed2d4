package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

func TestKindOf_ClassifiedAndUnclassifiedErrors(t *testing.T) {
	assert.Equal(t, errs.NotFound, errs.KindOf(errs.NotFoundError("missing", nil)))
	assert.Equal(t, errs.Internal, errs.KindOf(errors.New("plain error")))
}

func TestIs_MatchesWrappedError(t *testing.T) {
	cause := errors.New("driver timeout")
	wrapped := fmt.Errorf("reading row: %w", errs.TransientError("db unavailable", cause))

	assert.True(t, errs.Is(wrapped, errs.Transient))
	assert.False(t, errs.Is(wrapped, errs.Conflict))
}

func TestRetryable_OnlyTransientIsRetryable(t *testing.T) {
	assert.True(t, errs.Retryable(errs.TransientError("x", nil)))
	assert.False(t, errs.Retryable(errs.TimeoutError("x", nil)))
	assert.False(t, errs.Retryable(errs.ValidationError("x", nil)))
	assert.False(t, errs.Retryable(errors.New("unclassified")))
}

func TestError_MessageIncludesCauseWhenPresent(t *testing.T) {
	withCause := errs.ConflictError("duplicate label", errors.New("unique violation"))
	assert.Contains(t, withCause.Error(), "unique violation")

	withoutCause := errs.ConflictError("duplicate label", nil)
	assert.NotContains(t, withoutCause.Error(), "<nil>")
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := errs.InternalError("wrapped", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}
