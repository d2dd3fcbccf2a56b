package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		Type:       JobTypeEmailNotification,
		Status:     JobStatusPending,
		MaxRetries: 3,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("smtp timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "smtp timeout", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestJobIsRetryable(t *testing.T) {
	job := &Job{MaxRetries: 2}

	assert.True(t, job.IsRetryable())
	job.MarkAsFailed("first")
	assert.True(t, job.IsRetryable())
	job.MarkAsFailed("second")
	assert.False(t, job.IsRetryable())
}

func TestEmailJobPayloadRoundTrip(t *testing.T) {
	payload := EmailJobPayload{
		To:      "admin@example.com",
		Subject: "Payment received",
		Body:    "Order ord-1 was paid.",
	}

	m := payload.ToMap()
	assert.Equal(t, "admin@example.com", m["to"])

	restored, err := EmailJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestEmailJobPayloadFromMap_IgnoresUnknownKeys(t *testing.T) {
	restored, err := EmailJobPayloadFromMap(map[string]interface{}{
		"to":     "ops@example.com",
		"extras": []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", restored.To)
	assert.Empty(t, restored.Subject)
}
