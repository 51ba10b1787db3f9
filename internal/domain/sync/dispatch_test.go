package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatchJob(t *testing.T) {
	env := DispatchEnvelope{
		Kind:     DispatchKindPropagation,
		UserID:   uuid.New(),
		Priority: 2,
		Payload:  []byte(`{"entity_id":"abc"}`),
	}

	job := NewDispatchJob(env)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, DispatchStatusPending, job.Status)
	assert.Equal(t, env.UserID, job.UserID)
	assert.Equal(t, 2, job.Priority)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
	assert.Nil(t, job.NextRetryAt)
}

func TestDispatchJob_Envelope(t *testing.T) {
	env := DispatchEnvelope{
		Kind:     DispatchKindBackfill,
		UserID:   uuid.New(),
		Priority: 1,
		Payload:  []byte(`{}`),
	}

	rebuilt := NewDispatchJob(env).Envelope()

	assert.Equal(t, env.Kind, rebuilt.Kind)
	assert.Equal(t, env.UserID, rebuilt.UserID)
	assert.Equal(t, env.Priority, rebuilt.Priority)
	assert.Equal(t, env.Payload, rebuilt.Payload)
}

func TestDispatchJob_MarkProcessing(t *testing.T) {
	job := NewDispatchJob(DispatchEnvelope{Kind: DispatchKindPropagation, UserID: uuid.New()})

	require.NoError(t, job.MarkProcessing())
	assert.Equal(t, DispatchStatusProcessing, job.Status)

	// Already processing jobs cannot be claimed again
	assert.Error(t, job.MarkProcessing())

	job.MarkFailed("timeout")
	assert.NoError(t, job.MarkProcessing())
}

func TestDispatchJob_MarkCompleted(t *testing.T) {
	job := NewDispatchJob(DispatchEnvelope{Kind: DispatchKindPropagation, UserID: uuid.New()})
	require.NoError(t, job.MarkProcessing())

	job.MarkCompleted()

	assert.Equal(t, DispatchStatusCompleted, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.False(t, job.CanRetry())
}

func TestDispatchJob_MarkFailedBackoffDoubles(t *testing.T) {
	job := NewDispatchJob(DispatchEnvelope{Kind: DispatchKindPropagation, UserID: uuid.New()})

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, backoff := range expected {
		before := time.Now()
		job.MarkFailed("transient")

		assert.Equal(t, DispatchStatusFailed, job.Status)
		assert.Equal(t, i+1, job.Attempts)
		assert.True(t, job.CanRetry())
		require.NotNil(t, job.NextRetryAt)
		assert.WithinDuration(t, before.Add(backoff), *job.NextRetryAt, time.Second)
	}
}

func TestDispatchJob_ExhaustedAttemptsGoDead(t *testing.T) {
	job := NewDispatchJob(DispatchEnvelope{Kind: DispatchKindPropagation, UserID: uuid.New()})

	for i := 0; i < DefaultMaxAttempts; i++ {
		job.MarkFailed("boom")
	}

	assert.Equal(t, DispatchStatusDead, job.Status)
	assert.True(t, job.IsDead())
	assert.False(t, job.CanRetry())
	assert.Equal(t, "boom", job.LastError)
}
