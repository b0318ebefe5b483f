package calendar

import (
	"github.com/hrygo/calsense/store"
)

// FindConflicts returns every event whose interval overlaps candidate, in input order.
// An empty result means the candidate is free.
func FindConflicts(candidate TimeInterval, events []*store.Event) ([]*store.Event, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	conflicts := make([]*store.Event, 0)
	for _, event := range events {
		if Overlaps(candidate, EventInterval(event)) {
			conflicts = append(conflicts, event)
		}
	}
	return conflicts, nil
}
