package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerr "github.com/hrygo/calsense/server/internal/errors"
)

func TestOverlaps_Symmetric(t *testing.T) {
	base := monday.Add(9 * time.Hour)
	points := []time.Duration{0, 30 * time.Minute, time.Hour, 90 * time.Minute, 2 * time.Hour}

	var intervals []TimeInterval
	for _, s := range points {
		for _, e := range points {
			if s <= e {
				intervals = append(intervals, iv(base.Add(s), base.Add(e)))
			}
		}
	}

	for _, a := range intervals {
		for _, b := range intervals {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "a=%v b=%v", a, b)
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeInterval
		want bool
	}{
		{"touching", iv(at(0, 9, 0), at(0, 10, 0)), iv(at(0, 10, 0), at(0, 11, 0)), false},
		{"partial", iv(at(0, 9, 0), at(0, 10, 30)), iv(at(0, 10, 0), at(0, 11, 0)), true},
		{"contained", iv(at(0, 9, 0), at(0, 12, 0)), iv(at(0, 10, 0), at(0, 11, 0)), true},
		{"disjoint", iv(at(0, 9, 0), at(0, 10, 0)), iv(at(0, 11, 0), at(0, 12, 0)), false},
		{"identical", iv(at(0, 9, 0), at(0, 10, 0)), iv(at(0, 9, 0), at(0, 10, 0)), true},
		{"point inside", iv(at(0, 9, 30), at(0, 9, 30)), iv(at(0, 9, 0), at(0, 10, 0)), true},
		{"point on start", iv(at(0, 9, 0), at(0, 9, 0)), iv(at(0, 9, 0), at(0, 10, 0)), false},
		{"point on end", iv(at(0, 10, 0), at(0, 10, 0)), iv(at(0, 9, 0), at(0, 10, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
		})
	}
}

func TestIntersect(t *testing.T) {
	got, ok := Intersect(iv(at(0, 9, 0), at(0, 12, 0)), iv(at(0, 11, 0), at(0, 14, 0)))
	require.True(t, ok)
	assert.Equal(t, iv(at(0, 11, 0), at(0, 12, 0)), got)

	_, ok = Intersect(iv(at(0, 9, 0), at(0, 10, 0)), iv(at(0, 10, 0), at(0, 11, 0)))
	assert.False(t, ok)
}

func TestNewInterval(t *testing.T) {
	got, err := NewInterval(at(0, 9, 0), at(0, 9, 0))
	require.NoError(t, err)
	assert.True(t, got.IsZeroLength())
	assert.Zero(t, got.Duration())

	_, err = NewInterval(at(0, 10, 0), at(0, 9, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrInvalidInterval)
}
