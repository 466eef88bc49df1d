package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiterEmptyURLReturnsLocal(t *testing.T) {
	l, err := NewLimiter("")
	require.NoError(t, err)
	_, ok := l.(*localLimiter)
	assert.True(t, ok, "expected a local token-bucket limiter when redis_url is empty")
	assert.NoError(t, l.Close())
}

func TestNewLimiterInvalidRedisURL(t *testing.T) {
	_, err := NewLimiter("not-a-valid-url")
	assert.Error(t, err)
}

func TestLocalLimiterWaitRespectsContextCancellation(t *testing.T) {
	l := newLocalLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	// Drain the burst allowance so the next Wait call actually blocks.
	for i := 0; i < defaultRPM; i++ {
		_ = l.requests.Allow()
	}

	err := l.Wait(ctx, 10)
	assert.Error(t, err)
}
