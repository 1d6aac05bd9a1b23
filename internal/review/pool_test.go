package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/schema"
)

func TestTokenPool_Rotation(t *testing.T) {
	p := NewTokenPool([]string{"aaa", "bbb"})
	ctx := context.Background()

	first, err := p.Acquire(ctx)
	require.NoError(t, err)
	second, err := p.Acquire(ctx)
	require.NoError(t, err)
	third, err := p.Acquire(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-1", first.Name)
	assert.Equal(t, "aaa", first.Token)
	assert.Equal(t, "token-2", second.Name)
	assert.Equal(t, first, third)
}

func TestTokenPool_Anonymous(t *testing.T) {
	p := NewTokenPool(nil)
	cred, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anonymous", cred.Name)
	assert.Empty(t, cred.Token)
}

func TestTokenPool_Exhaustion(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewTokenPool([]string{"aaa", "bbb"})
	p.now = func() time.Time { return now }
	ctx := context.Background()

	a, _ := p.Acquire(ctx)
	p.MarkExhausted(a, now.Add(10*time.Minute))

	for range 3 {
		cred, err := p.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-2", cred.Name)
	}

	b, _ := p.Acquire(ctx)
	p.MarkExhausted(b, time.Time{})
	_, err := p.Acquire(ctx)
	assert.ErrorIs(t, err, schema.ErrRateLimitExhausted)

	// the first token resets before the second, which waits an hour by default
	now = now.Add(11 * time.Minute)
	cred, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", cred.Name)

	now = now.Add(time.Hour)
	seen := map[string]bool{}
	for range 2 {
		cred, err := p.Acquire(ctx)
		require.NoError(t, err)
		seen[cred.Name] = true
	}
	assert.Len(t, seen, 2)
}

func TestTokenPool_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTokenPool([]string{"aaa"}).Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
