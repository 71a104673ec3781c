package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	data int
}

func fill(c *LRU[int, *object], n int, evictable func(i int) bool) {
	for i := 0; i < n; i++ {
		c.Add(i, &object{data: i}, evictable(i))
	}
}

func always(int) bool { return true }

func TestLRU_AddAndFind(t *testing.T) {
	c := NewLRU[int, *object](10, nil)
	fill(c, 5, always)

	for i := 0; i < 5; i++ {
		v, ok := c.Find(i)
		require.True(t, ok)
		assert.Equal(t, i, v.data)
	}
	_, ok := c.Find(42)
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(5), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_AddDoesNotEvict(t *testing.T) {
	c := NewLRU[int, *object](2, nil)
	fill(c, 5, always)
	assert.Equal(t, 5, c.Len())
}

func TestLRU_PerformEviction(t *testing.T) {
	const total, capacity = 20, 10

	t.Run("Sequential", func(t *testing.T) {
		c := NewLRU[int, *object](capacity, nil)
		fill(c, total, always)

		assert.Equal(t, total-capacity, c.PerformEviction())

		for i := 0; i < capacity; i++ {
			_, ok := c.Find(i)
			assert.False(t, ok, "key %d", i)
		}
		for i := capacity; i < total; i++ {
			v, ok := c.Find(i)
			require.True(t, ok, "key %d", i)
			assert.Equal(t, i, v.data)
		}
	})

	t.Run("Random", func(t *testing.T) {
		c := NewLRU[int, *object](capacity, nil)
		fill(c, total, always)
		for i := 0; i < total; i += 2 {
			_, ok := c.Find(i)
			require.True(t, ok)
		}

		c.PerformEviction()

		for i := 0; i < total; i++ {
			_, ok := c.Find(i)
			assert.Equal(t, i%2 == 0, ok, "key %d", i)
		}
	})

	t.Run("Reverse", func(t *testing.T) {
		c := NewLRU[int, *object](capacity, nil)
		fill(c, total, always)
		for i := total - 1; i >= 0; i-- {
			_, ok := c.Find(i)
			require.True(t, ok)
		}

		c.PerformEviction()

		for i := 0; i < capacity; i++ {
			_, ok := c.Find(i)
			assert.True(t, ok, "key %d", i)
		}
		for i := capacity; i < total; i++ {
			_, ok := c.Find(i)
			assert.False(t, ok, "key %d", i)
		}
	})

	t.Run("EvictableFlag", func(t *testing.T) {
		c := NewLRU[int, *object](capacity, nil)
		fill(c, total, func(i int) bool { return (i+1)%5 != 0 })

		c.PerformEviction()

		for i := 0; i < capacity+2; i++ {
			_, ok := c.Find(i)
			assert.Equal(t, (i+1)%5 == 0, ok, "key %d", i)
		}
		for i := capacity + 2; i < total; i++ {
			_, ok := c.Find(i)
			assert.True(t, ok, "key %d", i)
		}
	})

	t.Run("EvictableFlagReset", func(t *testing.T) {
		var released []int
		c := NewLRU[int, *object](1, func(k int, _ *object) { released = append(released, k) })
		c.Add(1, &object{data: 1}, false)
		c.Add(2, &object{data: 2}, false)

		assert.Zero(t, c.PerformEviction())
		assert.Equal(t, 2, c.Len())

		require.True(t, c.SetEvictable(1, true))
		assert.Equal(t, 1, c.PerformEviction())
		assert.Equal(t, []int{1}, released)

		_, ok := c.Find(2)
		assert.True(t, ok)
		assert.False(t, c.SetEvictable(1, false))
	})
}

func TestLRU_SetEvictableKeepsRecency(t *testing.T) {
	c := NewLRU[int, *object](1, nil)
	c.Add(1, &object{}, true)
	c.Add(2, &object{}, true)

	require.True(t, c.SetEvictable(1, true))
	c.PerformEviction()

	_, ok := c.Find(2)
	assert.True(t, ok)
	_, ok = c.Find(1)
	assert.False(t, ok)
}

func TestLRU_ReplaceReleasesOldValue(t *testing.T) {
	var released []int
	c := NewLRU[string, *object](4, func(_ string, v *object) { released = append(released, v.data) })

	c.Add("a", &object{data: 1}, true)
	c.Add("a", &object{data: 2}, true)

	v, ok := c.Find("a")
	require.True(t, ok)
	assert.Equal(t, 2, v.data)
	assert.Equal(t, []int{1}, released)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []int{1, 2}, released)
}

func TestLRU_CloseReleasesEverything(t *testing.T) {
	count := 0
	c := NewLRU[int, *object](1, func(int, *object) { count++ })
	fill(c, 3, func(i int) bool { return i != 0 })

	require.NoError(t, c.Close())
	assert.Equal(t, 3, count)
	assert.Zero(t, c.Len())
}

func TestLRU_Keys(t *testing.T) {
	c := NewLRU[int, *object](10, nil)
	fill(c, 3, always)
	c.Find(0)
	assert.Equal(t, []int{0, 2, 1}, c.Keys())
}

func TestLRU_Range(t *testing.T) {
	c := NewLRU[int, *object](10, nil)
	fill(c, 4, func(i int) bool { return i%2 == 0 })

	var keys []int
	var pinned []int
	c.Range(func(k int, v *object, evictable bool) bool {
		assert.Equal(t, k, v.data)
		keys = append(keys, k)
		if !evictable {
			pinned = append(pinned, k)
		}
		return len(keys) < 3
	})
	assert.Equal(t, []int{3, 2, 1}, keys)
	assert.Equal(t, []int{3, 1}, pinned)
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, *object](8, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*500 + i) % 64
				c.Add(k, &object{data: k}, i%3 != 0)
				c.Find(k)
				c.SetEvictable(k, true)
				if i%50 == 0 {
					c.PerformEviction()
				}
			}
		}(g)
	}
	wg.Wait()

	c.PerformEviction()
	assert.LessOrEqual(t, c.Len(), 8)
}
