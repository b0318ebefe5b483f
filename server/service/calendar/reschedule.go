package calendar

import (
	"fmt"
	"time"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/timezone"
	"github.com/hrygo/calsense/store"
)

// ExclusionPolicy reports whether slot must not be offered as a new time for event.
type ExclusionPolicy func(event *store.Event, slot FreeSlot) bool

// ExcludeSameDay rejects slots on the calendar day the event currently starts on,
// judged in the slot's location.
func ExcludeSameDay(event *store.Event, slot FreeSlot) bool {
	return timezone.SameDay(event.Start, slot.Start, slot.Start.Location())
}

// ExcludeNone accepts every slot.
func ExcludeNone(*store.Event, FreeSlot) bool {
	return false
}

// ExclusionPolicyByName resolves a policy name as used by the API and CLI.
// The empty name selects ExcludeSameDay.
func ExclusionPolicyByName(name string) (ExclusionPolicy, error) {
	switch name {
	case "", "same-day":
		return ExcludeSameDay, nil
	case "none":
		return ExcludeNone, nil
	default:
		return nil, calerr.InvalidArgument(fmt.Sprintf("unknown exclusion policy %q", name))
	}
}

// RescheduleSuggestion pairs an event with alternative slots for it.
type RescheduleSuggestion struct {
	Event        *store.Event `json:"event"`
	Alternatives []FreeSlot   `json:"alternatives"`
}

// SuggestAlternatives looks eventID up in events and proposes up to MaxAlternatives slots in
// [now, now+lookaheadDays) that can hold the whole event and pass policy, in chronological
// order. lookaheadDays <= 0 selects DefaultLookaheadDays and a nil policy ExcludeSameDay.
func SuggestAlternatives(eventID string, lookaheadDays int, events []*store.Event, now time.Time, policy ExclusionPolicy) (*RescheduleSuggestion, error) {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	if policy == nil {
		policy = ExcludeSameDay
	}

	var target *store.Event
	for _, event := range events {
		if event.ID == eventID {
			target = event
			break
		}
	}
	if target == nil {
		return nil, calerr.EventNotFound(eventID)
	}

	durationMinutes := int(target.Duration() / time.Minute)
	rng := TimeInterval{Start: now, End: timezone.AddDays(now, lookaheadDays)}
	availability, err := FindFreeSlots(rng, events, DefaultWorkWindow(), durationMinutes)
	if err != nil {
		return nil, err
	}

	alternatives := make([]FreeSlot, 0, MaxAlternatives)
	for _, slot := range availability.Slots {
		if policy(target, slot) {
			continue
		}
		alternatives = append(alternatives, slot)
		if len(alternatives) == MaxAlternatives {
			break
		}
	}

	return &RescheduleSuggestion{Event: target, Alternatives: alternatives}, nil
}
