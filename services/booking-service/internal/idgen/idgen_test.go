package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsStrictlyIncreasing(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)
	fixed := Epoch.Add(time.Hour)
	g.now = func() time.Time { return fixed }

	prev := int64(-1)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextSurvivesClockRollback(t *testing.T) {
	g, _ := New(0)
	now := Epoch.Add(time.Minute)
	g.now = func() time.Time { return now }
	a := g.Next()
	now = now.Add(-time.Second)
	b := g.Next()
	assert.Greater(t, b, a)
}

func TestIDsFitIn53Bits(t *testing.T) {
	g, _ := New(15)
	g.now = func() time.Time { return Epoch.AddDate(60, 0, 0) }
	assert.Less(t, g.Next(), int64(1)<<53)
}

func TestNodeRange(t *testing.T) {
	_, err := New(16)
	assert.Error(t, err)
	_, err = New(-1)
	assert.Error(t, err)
}
