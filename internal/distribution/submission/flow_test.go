package submission

import (
	"context"
	"testing"

	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewTestLogger(t))
	assert.Equal(t, StateIdle, f.Current())

	require.NoError(t, f.Begin(ctx))
	assert.Equal(t, StateValidating, f.Current())
	assert.True(t, f.Busy())

	require.NoError(t, f.Submitting(ctx))
	assert.Equal(t, StateSubmitting, f.Current())

	f.Succeed(ctx)
	assert.Equal(t, StateSuccess, f.Current())
	assert.False(t, f.Busy())

	// a finished form may submit again
	require.NoError(t, f.Begin(ctx))
}

func TestFlow_FailureReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewNoOpLogger())

	require.NoError(t, f.Begin(ctx))
	require.NoError(t, f.Submitting(ctx))
	f.Fail(ctx, "Range already issued")

	assert.Equal(t, StateIdle, f.Current())
	assert.Equal(t, "Range already issued", f.LastError())

	require.NoError(t, f.Begin(ctx))
	assert.Empty(t, f.LastError())
}

func TestFlow_RejectReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewNoOpLogger())

	require.NoError(t, f.Begin(ctx))
	f.Reject(ctx, "Allocation is not valid")

	assert.Equal(t, StateIdle, f.Current())
	assert.Equal(t, "Allocation is not valid", f.LastError())
}

func TestFlow_BeginWhileBusy(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewNoOpLogger())

	require.NoError(t, f.Begin(ctx))
	err := f.Begin(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSubmissionInProgress))

	require.NoError(t, f.Submitting(ctx))
	err = f.Begin(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSubmissionInProgress))
}

func TestFlow_Reset(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(logger.NewNoOpLogger())

	f.Reset(ctx)
	assert.Equal(t, StateIdle, f.Current())

	require.NoError(t, f.Begin(ctx))
	require.NoError(t, f.Submitting(ctx))
	f.Succeed(ctx)
	f.Reset(ctx)
	assert.Equal(t, StateIdle, f.Current())
}
