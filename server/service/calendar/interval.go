package calendar

import (
	"fmt"
	"time"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/store"
)

// TimeInterval is a half-open [Start, End) span of time. Zero-length intervals are valid.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval builds a validated interval.
func NewInterval(start, end time.Time) (TimeInterval, error) {
	iv := TimeInterval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return iv, nil
}

// EventInterval returns the interval an event occupies.
func EventInterval(e *store.Event) TimeInterval {
	return TimeInterval{Start: e.Start, End: e.End}
}

// Validate rejects intervals whose start is after their end.
func (iv TimeInterval) Validate() error {
	if iv.Start.After(iv.End) {
		return calerr.InvalidInterval(fmt.Sprintf("interval start %s is after end %s",
			iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339)))
	}
	return nil
}

// Duration returns End - Start.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsZeroLength reports whether the interval is a point.
func (iv TimeInterval) IsZeroLength() bool {
	return iv.Start.Equal(iv.End)
}

// Overlaps reports whether a and b share any instant: a.Start < b.End && b.Start < a.End.
// Touching endpoints do not overlap. Every overlap test in this package goes through here.
func Overlaps(a, b TimeInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Intersect returns the common part of a and b. ok is false when they do not overlap.
func Intersect(a, b TimeInterval) (TimeInterval, bool) {
	if !Overlaps(a, b) {
		return TimeInterval{}, false
	}
	return TimeInterval{Start: maxTime(a.Start, b.Start), End: minTime(a.End, b.End)}, true
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
