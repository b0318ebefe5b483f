package calendar

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedCounts(t *testing.T) {
	c := NewOrderedCounts[int]()
	c.Add("b", 1)
	c.Add("a", 2)
	c.Add("b", 3)

	assert.Equal(t, []string{"b", "a"}, c.Keys())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 6, c.Sum())

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = c.Get("missing")
	assert.False(t, ok)

	var visited []string
	c.Each(func(key string, _ int) { visited = append(visited, key) })
	assert.Equal(t, []string{"b", "a"}, visited)
}

func TestOrderedCounts_ZeroValueUsable(t *testing.T) {
	var c OrderedCounts[float64]
	c.Add("x", 1.5)
	assert.Equal(t, 1.5, c.Sum())
}

func TestOrderedCounts_JSON(t *testing.T) {
	c := NewOrderedCounts[float64]()
	c.Add("2024-03-05", 30)
	c.Add("2024-03-04", 90.5)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"2024-03-05":30,"2024-03-04":90.5}`, string(data))

	decoded := NewOrderedCounts[float64]()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, []string{"2024-03-05", "2024-03-04"}, decoded.Keys())
	assert.Equal(t, c.Map(), decoded.Map())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), decoded))
}
