package calendar

import (
	"fmt"
	"sort"
	"time"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/timezone"
	"github.com/hrygo/calsense/store"
)

// WorkWindow is the daily clock range [StartHour:00, EndHour:00) within which time is offered as free.
type WorkWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// DefaultWorkWindow returns the 09:00-17:00 window.
func DefaultWorkWindow() WorkWindow {
	return WorkWindow{StartHour: DefaultWorkStartHour, EndHour: DefaultWorkEndHour}
}

// Validate requires 0 <= StartHour < EndHour <= 24.
func (w WorkWindow) Validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return calerr.InvalidInterval(fmt.Sprintf("invalid working hours %02d:00-%02d:00", w.StartHour, w.EndHour))
	}
	return nil
}

// on returns the window for the calendar day of day, in day's location.
func (w WorkWindow) on(day time.Time) TimeInterval {
	return TimeInterval{Start: timezone.AtHour(day, w.StartHour), End: timezone.AtHour(day, w.EndHour)}
}

// FreeSlot is a gap between events, clipped to the working window and the query range.
type FreeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Label           string    `json:"label"`
}

// Interval returns the slot as a TimeInterval.
func (s FreeSlot) Interval() TimeInterval {
	return TimeInterval{Start: s.Start, End: s.End}
}

// Availability is the result of a free-slot scan with its roll-ups.
type Availability struct {
	Slots            []FreeSlot `json:"slots"`
	SlotCount        int        `json:"slot_count"`
	TotalFreeMinutes int        `json:"total_free_minutes"`
}

func newAvailability(slots []FreeSlot) *Availability {
	if slots == nil {
		slots = []FreeSlot{}
	}
	availability := &Availability{Slots: slots, SlotCount: len(slots)}
	for _, slot := range slots {
		availability.TotalFreeMinutes += slot.DurationMinutes
	}
	return availability
}

func newFreeSlot(start, end time.Time, loc *time.Location) FreeSlot {
	start, end = start.In(loc), end.In(loc)
	return FreeSlot{
		Start:           start,
		End:             end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
		Label:           timezone.FormatSlotLabel(start, end, loc),
	}
}

// sortedByStart returns a stably sorted copy; ties keep their input order.
func sortedByStart(events []*store.Event) []*store.Event {
	sorted := make([]*store.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}

// FindFreeSlots walks rng day by day in rng.Start's location, clips each day's working
// window to rng, and reports every gap between events at least minDurationMinutes long.
// Slots come out in ascending start order and never overlap each other or any event.
func FindFreeSlots(rng TimeInterval, events []*store.Event, window WorkWindow, minDurationMinutes int) (*Availability, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if minDurationMinutes < 0 {
		return nil, calerr.InvalidArgument(fmt.Sprintf("minimum duration must not be negative, got %d", minDurationMinutes))
	}

	loc := rng.Start.Location()
	minDuration := time.Duration(minDurationMinutes) * time.Minute
	sorted := sortedByStart(events)

	var slots []FreeSlot
	lastDay := timezone.StartOfDay(rng.End, loc)
	for day := timezone.StartOfDay(rng.Start, loc); !day.After(lastDay); day = timezone.AddDays(day, 1) {
		dayWindow := window.on(day)
		if !Overlaps(dayWindow, rng) {
			continue
		}
		effective, _ := Intersect(dayWindow, rng)
		slots = append(slots, gapsWithin(effective, sorted, minDuration, loc)...)
	}

	return newAvailability(slots), nil
}

// gapsWithin emits the gaps between the boundary markers of one clipped day window:
// a zero-length marker at effective.Start, the overlapping events in start order, and a
// zero-length marker at effective.End. Overlapping events are not merged; the cursor only
// moves forward, so a short event nested in a long one cannot reopen busy time.
func gapsWithin(effective TimeInterval, sorted []*store.Event, minDuration time.Duration, loc *time.Location) []FreeSlot {
	markers := make([]TimeInterval, 0, len(sorted)+2)
	markers = append(markers, TimeInterval{Start: effective.Start, End: effective.Start})
	for _, event := range sorted {
		if Overlaps(EventInterval(event), effective) {
			markers = append(markers, EventInterval(event))
		}
	}
	markers = append(markers, TimeInterval{Start: effective.End, End: effective.End})

	var slots []FreeSlot
	cursor := markers[0].End
	for _, next := range markers[1:] {
		gap := next.Start.Sub(cursor)
		if gap > 0 && gap >= minDuration {
			slots = append(slots, newFreeSlot(cursor, next.Start, loc))
		}
		cursor = maxTime(cursor, next.End)
	}
	return slots
}
