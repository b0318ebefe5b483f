package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/store"
)

func TestSuggestAlternatives_SkipsOriginalDay(t *testing.T) {
	now := at(0, 8, 0)
	sync := newEvent("sync", at(0, 10, 0), at(0, 11, 0))

	suggestion, err := SuggestAlternatives("sync", 7, []*store.Event{sync}, now, ExcludeSameDay)
	require.NoError(t, err)
	assert.Equal(t, "sync", suggestion.Event.ID)
	assert.Equal(t, [][2]time.Time{
		{at(1, 9, 0), at(1, 17, 0)},
		{at(2, 9, 0), at(2, 17, 0)},
		{at(3, 9, 0), at(3, 17, 0)},
	}, slotBounds(suggestion.Alternatives))
}

func TestSuggestAlternatives_NeverSameDayAndCapped(t *testing.T) {
	now := at(0, 7, 0)
	events := []*store.Event{
		newEvent("target", at(1, 13, 0), at(1, 13, 45)),
		newEvent("x", at(2, 9, 0), at(2, 12, 0)),
		newEvent("y", at(2, 12, 30), at(2, 17, 0)),
	}

	for _, days := range []int{1, 2, 3, 5, 14} {
		suggestion, err := SuggestAlternatives("target", days, events, now, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(suggestion.Alternatives), MaxAlternatives)
		for i, slot := range suggestion.Alternatives {
			assert.False(t, ExcludeSameDay(suggestion.Event, slot), "slot %s is on the original day", slot.Label)
			assert.GreaterOrEqual(t, slot.DurationMinutes, 45)
			if i > 0 {
				assert.True(t, suggestion.Alternatives[i-1].Start.Before(slot.Start))
			}
		}
	}
}

func TestSuggestAlternatives_ExcludeNone(t *testing.T) {
	now := at(0, 8, 0)
	sync := newEvent("sync", at(0, 10, 0), at(0, 11, 0))

	suggestion, err := SuggestAlternatives("sync", 7, []*store.Event{sync}, now, ExcludeNone)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(0, 9, 0), at(0, 10, 0)},
		{at(0, 11, 0), at(0, 17, 0)},
		{at(1, 9, 0), at(1, 17, 0)},
	}, slotBounds(suggestion.Alternatives))
}

func TestSuggestAlternatives_DefaultLookahead(t *testing.T) {
	now := at(0, 8, 0)
	// Blocks the working window of the next 13 days, leaving only the 14th.
	var events []*store.Event
	events = append(events, newEvent("target", at(0, 9, 0), at(0, 10, 0)))
	for d := 1; d <= 13; d++ {
		events = append(events, newEvent("busy", at(d, 9, 0), at(d, 17, 0)))
	}

	suggestion, err := SuggestAlternatives("target", 0, events, now, nil)
	require.NoError(t, err)
	assert.Empty(t, suggestion.Alternatives)

	events = events[:len(events)-1]
	suggestion, err = SuggestAlternatives("target", 0, events, now, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{{at(13, 9, 0), at(13, 17, 0)}}, slotBounds(suggestion.Alternatives))
}

func TestSuggestAlternatives_NoRoomReturnsEmpty(t *testing.T) {
	now := at(0, 8, 0)
	marathon := newEvent("marathon", at(0, 8, 0), at(0, 17, 0))

	suggestion, err := SuggestAlternatives("marathon", 3, []*store.Event{marathon}, now, nil)
	require.NoError(t, err)
	assert.NotNil(t, suggestion.Alternatives)
	assert.Empty(t, suggestion.Alternatives)
}

func TestSuggestAlternatives_EventNotFound(t *testing.T) {
	_, err := SuggestAlternatives("missing", 7, []*store.Event{newEvent("other", at(0, 9, 0), at(0, 10, 0))}, at(0, 8, 0), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrEventNotFound)
}

func TestExclusionPolicyByName(t *testing.T) {
	sameDay := newEvent("e", at(0, 10, 0), at(0, 11, 0))
	slot := FreeSlot{Start: at(0, 14, 0), End: at(0, 15, 0)}

	policy, err := ExclusionPolicyByName("")
	require.NoError(t, err)
	assert.True(t, policy(sameDay, slot))

	policy, err = ExclusionPolicyByName("none")
	require.NoError(t, err)
	assert.False(t, policy(sameDay, slot))

	_, err = ExclusionPolicyByName("weekends")
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)
}
