package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Number is the value type of an OrderedCounts histogram.
type Number interface {
	~int | ~int64 | ~float64
}

// OrderedCounts is an insertion-ordered histogram. Iteration and JSON encoding follow the
// order in which keys were first added, so tie-breaks over it are reproducible.
type OrderedCounts[V Number] struct {
	keys   []string
	values map[string]V
}

// NewOrderedCounts returns an empty histogram.
func NewOrderedCounts[V Number]() *OrderedCounts[V] {
	return &OrderedCounts[V]{values: make(map[string]V)}
}

// Add increments key by delta, appending key on first use.
func (c *OrderedCounts[V]) Add(key string, delta V) {
	if c.values == nil {
		c.values = make(map[string]V)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] += delta
}

// Get returns the value for key and whether it is present.
func (c *OrderedCounts[V]) Get(key string) (V, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (c *OrderedCounts[V]) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of keys.
func (c *OrderedCounts[V]) Len() int {
	return len(c.keys)
}

// Each calls fn for every entry in insertion order.
func (c *OrderedCounts[V]) Each(fn func(key string, value V)) {
	for _, key := range c.keys {
		fn(key, c.values[key])
	}
}

// Sum returns the total of all values.
func (c *OrderedCounts[V]) Sum() V {
	var total V
	for _, v := range c.values {
		total += v
	}
	return total
}

// Map returns an unordered copy.
func (c *OrderedCounts[V]) Map() map[string]V {
	m := make(map[string]V, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the histogram as a JSON object with keys in insertion order.
func (c *OrderedCounts[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (c *OrderedCounts[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered counts: expected object, got %v", tok)
	}

	c.keys = nil
	c.values = make(map[string]V)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered counts: expected string key, got %v", tok)
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("ordered counts: value of %q: %w", key, err)
		}
		c.Add(key, value)
	}
	_, err = dec.Token()
	return err
}
