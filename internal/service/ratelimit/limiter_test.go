package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowDrainsAndRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewWithClock(func() time.Time { return now })

	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.False(t, l.Allow("yahoo", 2, 1))
	assert.True(t, l.Allow("coingecko", 2, 1), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.False(t, l.Allow("yahoo", 2, 1))
}

func TestAllowZeroCapacityIsUnlimited(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("x", 0, 0))
	}
}
