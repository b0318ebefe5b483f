package calendar

import (
	"time"

	"github.com/hrygo/calsense/store"
)

// monday is 2024-03-04, a Monday, at midnight UTC.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// at returns hour:minute on monday shifted by dayOffset days.
func at(dayOffset, hour, minute int) time.Time {
	return time.Date(2024, 3, 4+dayOffset, hour, minute, 0, 0, time.UTC)
}

func iv(start, end time.Time) TimeInterval {
	return TimeInterval{Start: start, End: end}
}

func oneDay(dayOffset int) TimeInterval {
	return iv(at(dayOffset, 0, 0), at(dayOffset+1, 0, 0))
}

func newEvent(id string, start, end time.Time, categories ...string) *store.Event {
	return &store.Event{
		ID:         id,
		CreatorID:  1,
		RowStatus:  store.Normal,
		Title:      id,
		Start:      start,
		End:        end,
		Categories: categories,
	}
}

func eventIDs(events []*store.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func slotBounds(slots []FreeSlot) [][2]time.Time {
	out := make([][2]time.Time, 0, len(slots))
	for _, s := range slots {
		out = append(out, [2]time.Time{s.Start, s.End})
	}
	return out
}
