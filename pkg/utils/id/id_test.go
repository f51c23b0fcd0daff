package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	a := NewULID()
	b := NewULID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.True(t, IsValidULID(a))
}

func TestULIDGenerator_MonotonicWithinMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := NewULIDGenerator(WithClock(func() time.Time { return fixed }))

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		require.Greater(t, next, prev)
		prev = next
	}

	u, err := ParseULID(prev)
	require.NoError(t, err)
	assert.Equal(t, uint64(fixed.UnixMilli()), u.Time())
}

func TestParseULID_Invalid(t *testing.T) {
	for _, s := range []string{"", "short", "01ARZ3NDEKTSV4RRFFQ69G5FA!", "81ARZ3NDEKTSV4RRFFQ69G5FAV"} {
		_, err := ParseULID(s)
		assert.ErrorIs(t, err, ErrInvalidULID, s)
	}
}
