package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "contract-qa/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := executeWithRetry(context.Background(), fastRetry, "complete-job", func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := executeWithRetry(context.Background(), fastRetry, "complete-job", func(context.Context) error {
		calls++
		return fmt.Errorf("rpc error: code = NotFound desc = job not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeWorkflowEngine, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "complete-job", stdErr.Metadata["operation"])
}

func TestExecuteWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := executeWithRetry(context.Background(), fastRetry, "topology", func(context.Context) error {
		calls++
		return fmt.Errorf("deadline exceeded")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")

	stdErr, _ := apperrors.AsStandard(err)
	assert.True(t, stdErr.Retryable)
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("connection reset by peer")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("context deadline exceeded")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("permission denied")))
}
