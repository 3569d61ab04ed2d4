package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/agentmem/internal/sandbox"
	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

func TestExecutor_BashSuccess(t *testing.T) {
	ex, err := sandbox.New(sandbox.DefaultConfig(), logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	res, err := ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceBash,
		SourceCode: "echo hello",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
}

func TestExecutor_NonZeroExitIsNotSuccess(t *testing.T) {
	ex, err := sandbox.New(sandbox.DefaultConfig(), logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	res, err := ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceBash,
		SourceCode: "exit 7",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 7, res.ExitCode)
}

func TestExecutor_TimeoutIsReportedAsTimeoutError(t *testing.T) {
	ex, err := sandbox.New(sandbox.DefaultConfig(), logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceBash,
		SourceCode: "sleep 5",
		Timeout:    50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.KindOf(err))
}

func TestExecutor_UnsupportedSourceTypeFails(t *testing.T) {
	ex, err := sandbox.New(sandbox.DefaultConfig(), logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceType("ruby"),
		SourceCode: "puts 1",
	})
	assert.Error(t, err)
}

func TestExecutor_AssertedPathOutsideWhitelistIsRejected(t *testing.T) {
	ex, err := sandbox.New(sandbox.Config{AllowedPaths: []string{"/tmp/allowed"}}, logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType:    sandbox.SourceBash,
		SourceCode:    "echo hi",
		AssertedPaths: []string{"/etc/passwd"},
	})
	assert.Error(t, err)
}

func TestExecutor_OutputIsCappedWithTruncationMarker(t *testing.T) {
	ex, err := sandbox.New(sandbox.Config{MaxOutputBytes: 16}, logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	res, err := ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceBash,
		SourceCode: "printf 'x%.0s' {1..200}",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "truncated")
}

func TestExecutor_ZeroTimeoutIsRejectedBeforeSpawn(t *testing.T) {
	ex, err := sandbox.New(sandbox.DefaultConfig(), logr.Discard(), metrics.Noop())
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), sandbox.ExecuteRequest{
		SourceType: sandbox.SourceBash,
		SourceCode: "echo hello",
		Timeout:    0,
	})
	require.Error(t, err)
	assert.Equal(t, errs.Validation, errs.KindOf(err))
}

func TestExecutor_DefaultTimeoutFallsBackWhenConfigUnset(t *testing.T) {
	ex, err := sandbox.New(sandbox.Config{}, logr.Discard(), metrics.Noop())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ex.DefaultTimeout())
}
