package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounterThrottles(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := NewCounter(time.Minute)
	c.now = func() time.Time { return clock }

	total, suppressed, ok := c.Inc()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), total)
	assert.Zero(t, suppressed)

	for i := 0; i < 3; i++ {
		_, _, ok = c.Inc()
		assert.False(t, ok)
	}

	clock = clock.Add(61 * time.Second)
	total, suppressed, ok = c.Inc()
	assert.True(t, ok)
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, uint64(3), suppressed)
}

func TestCounterResetReportsImmediately(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := NewCounter(time.Minute)
	c.now = func() time.Time { return clock }

	_, _, ok := c.Inc()
	assert.True(t, ok)
	_, _, ok = c.Inc()
	assert.False(t, ok)

	c.Reset()
	_, suppressed, ok := c.Inc()
	assert.True(t, ok)
	assert.Zero(t, suppressed)
	assert.Equal(t, uint64(3), c.Total())
}

func TestCounterWithoutIntervalAlwaysReports(t *testing.T) {
	c := NewCounter(0)
	for i := 0; i < 5; i++ {
		_, _, ok := c.Inc()
		assert.True(t, ok)
	}
}

func TestNilCounter(t *testing.T) {
	var c *Counter
	_, _, ok := c.Inc()
	assert.False(t, ok)
	c.Reset()
	assert.Zero(t, c.Total())
}
