package calendar

import (
	"context"
	"time"

	"github.com/hrygo/calsense/store"
)

// Service binds the calendar computations to an event repository. Every operation fetches
// one snapshot, computes over it, and returns plain data; nothing is kept between calls.
type Service interface {
	// CheckConflicts returns the user's events overlapping candidate.
	CheckConflicts(ctx context.Context, userID int32, candidate TimeInterval) ([]*store.Event, error)

	// FindFreeSlots returns the user's free slots inside window across rng.
	FindFreeSlots(ctx context.Context, userID int32, rng TimeInterval, window WorkWindow, minDurationMinutes int) (*Availability, error)

	// AnalyzeBusyTime aggregates the user's workload across rng. A non-empty filter
	// expression narrows the snapshot first.
	AnalyzeBusyTime(ctx context.Context, userID int32, rng TimeInterval, filter string) (*AnalyticsReport, error)

	// FindOptimalSlot searches one calendar for slots that can hold durationMinutes.
	FindOptimalSlot(ctx context.Context, userID int32, rng TimeInterval, durationMinutes int) (*Availability, error)

	// FindCommonSlots searches the intersection of several users' free time.
	FindCommonSlots(ctx context.Context, userIDs []int32, rng TimeInterval, window WorkWindow, durationMinutes int) (*Availability, error)

	// SuggestAlternatives proposes new times for an event within the lookahead horizon.
	SuggestAlternatives(ctx context.Context, userID int32, eventID string, lookaheadDays int, policy ExclusionPolicy) (*RescheduleSuggestion, error)

	// RescheduleEvent moves an event to newStart, keeping its duration, unless that
	// would overlap another of the user's events.
	RescheduleEvent(ctx context.Context, userID int32, eventID string, newStart time.Time) (*store.Event, error)

	// WorkWindow returns the configured default working window.
	WorkWindow() WorkWindow

	// Location returns the location day boundaries are computed in.
	Location() *time.Location
}

// EventRepository supplies event snapshots. It owns storage, sync and consistency.
type EventRepository interface {
	// FetchEvents returns the user's events overlapping [start, end).
	FetchEvents(ctx context.Context, userID int32, start, end time.Time) ([]*store.Event, error)

	// FetchEventByID returns the user's event, or nil when it does not exist.
	FetchEventByID(ctx context.Context, userID int32, id string) (*store.Event, error)

	// PersistEvent stores the event and returns the stored copy.
	PersistEvent(ctx context.Context, event *store.Event) (*store.Event, error)
}
