package calendar

import (
	"fmt"
	"time"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/store"
)

// FindOptimalSlot scans one calendar for slots of at least durationMinutes inside the
// default working window. It does not consider other participants; see FindCommonSlots.
func FindOptimalSlot(rng TimeInterval, events []*store.Event, durationMinutes int) (*Availability, error) {
	return FindFreeSlots(rng, events, DefaultWorkWindow(), durationMinutes)
}

// FindCommonSlots returns the time every participant has free inside window, as slots of
// at least durationMinutes. Each participant's free set is computed with no minimum, the
// sets are intersected, and only then are short pieces dropped, so a meeting can use time
// that no single participant's own minimum would have surfaced.
func FindCommonSlots(rng TimeInterval, participants [][]*store.Event, window WorkWindow, durationMinutes int) (*Availability, error) {
	if len(participants) == 0 {
		return nil, calerr.InvalidArgument("at least one participant is required")
	}
	if durationMinutes < 0 {
		return nil, calerr.InvalidArgument(fmt.Sprintf("meeting duration must not be negative, got %d", durationMinutes))
	}

	var common []TimeInterval
	for i, events := range participants {
		availability, err := FindFreeSlots(rng, events, window, 0)
		if err != nil {
			return nil, err
		}
		free := make([]TimeInterval, 0, len(availability.Slots))
		for _, slot := range availability.Slots {
			free = append(free, slot.Interval())
		}
		if i == 0 {
			common = free
			continue
		}
		common = intersectAll(common, free)
		if len(common) == 0 {
			break
		}
	}

	loc := rng.Start.Location()
	minDuration := time.Duration(durationMinutes) * time.Minute
	var slots []FreeSlot
	for _, iv := range common {
		if iv.Duration() >= minDuration {
			slots = append(slots, newFreeSlot(iv.Start, iv.End, loc))
		}
	}
	return newAvailability(slots), nil
}

// intersectAll intersects two ascending, pairwise disjoint interval lists.
func intersectAll(a, b []TimeInterval) []TimeInterval {
	var out []TimeInterval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if iv, ok := Intersect(a[i], b[j]); ok {
			out = append(out, iv)
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}
