package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGovernor_Touch(t *testing.T) {
	t.Run("keeps access order", func(t *testing.T) {
		g := NewGovernor(DefaultCapacity)

		for _, id := range []string{"a", "b", "c"} {
			assert.Empty(t, g.Touch(id))
		}
		g.Touch("a")

		assert.Equal(t, []string{"a", "c", "b"}, g.Channels())
	})

	t.Run("evicts least recently used above capacity", func(t *testing.T) {
		g := NewGovernor(DefaultCapacity)

		for i := 1; i <= 5; i++ {
			assert.Empty(t, g.Touch(fmt.Sprintf("c%d", i)))
		}
		g.Touch("c1")

		assert.Equal(t, []string{"c2"}, g.Touch("c6"))
		assert.Equal(t, []string{"c3"}, g.Touch("c7"))
		assert.Equal(t, 5, g.Len())
		assert.False(t, g.Contains("c2"))
		assert.True(t, g.Contains("c1"))
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		g := NewGovernor(3)
		evictedTotal := 0

		for i := 0; i < 50; i++ {
			evictedTotal += len(g.Touch(fmt.Sprintf("c%d", i%7)))
			assert.LessOrEqual(t, g.Len(), 3)
		}
		assert.Equal(t, 3, g.Len())
		assert.Positive(t, evictedTotal)
	})

	t.Run("touching a cached channel evicts nothing", func(t *testing.T) {
		g := NewGovernor(1)

		g.Touch("a")
		assert.Empty(t, g.Touch("a"))
		assert.Equal(t, []string{"a"}, g.Touch("b"))
	})
}

func TestGovernor_RemoveAndReset(t *testing.T) {
	g := NewGovernor(2)
	g.Touch("a")
	g.Touch("b")

	assert.True(t, g.Remove("a"))
	assert.False(t, g.Remove("a"))
	assert.Empty(t, g.Touch("c"))
	assert.Equal(t, []string{"c", "b"}, g.Channels())

	g.Reset()
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Channels())
}

func TestNewGovernor_RejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewGovernor(0) })
}
