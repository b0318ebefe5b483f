package calendar

import "time"

// Package-level constants for calendar computations.

const (
	// DefaultWorkStartHour and DefaultWorkEndHour bound the default working-hours window.
	DefaultWorkStartHour = 9
	DefaultWorkEndHour   = 17

	// DefaultLookaheadDays is the reschedule search horizon when the caller gives none.
	DefaultLookaheadDays = 14

	// DefaultMinSlotMinutes and DefaultMeetingMinutes are the API and CLI defaults for the
	// shortest reported free slot and the meeting length searched for.
	DefaultMinSlotMinutes = 30
	DefaultMeetingMinutes = 60

	// MaxAlternatives caps the number of reschedule suggestions.
	MaxAlternatives = 3

	// UncategorizedLabel is the category bucket for events without categories.
	UncategorizedLabel = "Uncategorized"

	// DefaultFetchTimeout bounds a single repository fetch.
	DefaultFetchTimeout = 5 * time.Second

	// MaxParticipants limits a common-slot search, and MaxConcurrentFetches the
	// number of participant snapshots fetched at once.
	MaxParticipants      = 50
	MaxConcurrentFetches = 8
)
