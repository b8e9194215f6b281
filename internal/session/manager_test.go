package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetReusesSession(t *testing.T) {
	f := newFixture(t)
	m := NewManager(f.deps(f.completions))
	ctx := context.Background()

	first, err := m.Get(ctx, f.userID)
	require.NoError(t, err)
	second, err := m.Get(ctx, f.userID)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Len())
}

func TestManager_SweepDropsIdle(t *testing.T) {
	f := newFixture(t)
	m := NewManager(f.deps(f.completions))
	ctx := context.Background()

	first, err := m.Get(ctx, f.userID)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	assert.Equal(t, 0, m.Sweep(time.Hour))
	assert.Equal(t, 1, m.Sweep(5*time.Minute))
	assert.Equal(t, 0, m.Len())

	next, err := m.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.NotSame(t, first, next)
}

func TestManager_Drop(t *testing.T) {
	f := newFixture(t)
	m := NewManager(f.deps(f.completions))

	_, err := m.Get(context.Background(), f.userID)
	require.NoError(t, err)
	m.Drop(f.userID)

	assert.Equal(t, 0, m.Len())
}
