package freshness_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidifa/querycache/freshness"
	"github.com/sidifa/querycache/types"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func TestIsFreshBoundary(t *testing.T) {
	ent := &types.Entry{Key: "k", StoredAt: t0, Window: time.Minute}
	window := 30 * time.Second

	assert.True(t, freshness.IsFresh(ent, t0, window))
	assert.True(t, freshness.IsFresh(ent, t0.Add(window-time.Nanosecond), window))
	assert.False(t, freshness.IsFresh(ent, t0.Add(window), window), "age equal to the window is stale")
	assert.False(t, freshness.IsFresh(ent, t0.Add(time.Hour), window))
}

func TestIsFreshUsesStoredWindowWhenZero(t *testing.T) {
	ent := &types.Entry{Key: "k", StoredAt: t0, Window: time.Minute}

	assert.True(t, freshness.IsFresh(ent, t0.Add(45*time.Second), 0))
	assert.False(t, freshness.IsFresh(ent, t0.Add(time.Minute), 0))
}

func TestIsFreshNeverWithoutWindow(t *testing.T) {
	ent := &types.Entry{Key: "k", StoredAt: t0}

	assert.False(t, freshness.IsFresh(ent, t0, 0))
	assert.False(t, freshness.IsFresh(ent, t0, -time.Second))
	assert.False(t, freshness.IsFresh(nil, t0, time.Minute))
}

func TestRemaining(t *testing.T) {
	ent := &types.Entry{Key: "k", StoredAt: t0, Window: time.Minute}

	assert.Equal(t, 50*time.Second, freshness.Remaining(ent, t0.Add(10*time.Second), 0))
	assert.Equal(t, 5*time.Second, freshness.Remaining(ent, t0.Add(10*time.Second), 15*time.Second))
	assert.Zero(t, freshness.Remaining(ent, t0.Add(2*time.Minute), 0))
}

func TestManualClock(t *testing.T) {
	clock := freshness.NewManualClock(t0)
	assert.Equal(t, t0, clock.Now())

	clock.Advance(90 * time.Second)
	assert.Equal(t, t0.Add(90*time.Second), clock.Now())

	later := t0.Add(24 * time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}
