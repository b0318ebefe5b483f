package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/store"
)

func TestFindOptimalSlot_UsesDefaultWindow(t *testing.T) {
	events := []*store.Event{
		newEvent("standup", at(0, 9, 0), at(0, 10, 0)),
		newEvent("lunch-sync", at(0, 11, 30), at(0, 12, 30)),
	}

	availability, err := FindOptimalSlot(oneDay(0), events, 120)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{{at(0, 12, 30), at(0, 17, 0)}}, slotBounds(availability.Slots))

	availability, err = FindOptimalSlot(oneDay(0), events, 60)
	require.NoError(t, err)
	assert.Len(t, availability.Slots, 2)
}

func TestFindOptimalSlot_InvalidRange(t *testing.T) {
	_, err := FindOptimalSlot(iv(at(1, 0, 0), at(0, 0, 0)), nil, 30)
	assert.ErrorIs(t, err, calerr.ErrInvalidInterval)
}

func TestFindCommonSlots_IntersectsParticipants(t *testing.T) {
	alice := []*store.Event{
		newEvent("a1", at(0, 9, 0), at(0, 10, 0)),
		newEvent("a2", at(0, 13, 0), at(0, 14, 0)),
	}
	bob := []*store.Event{
		newEvent("b1", at(0, 11, 0), at(0, 12, 0)),
		newEvent("b2", at(0, 15, 0), at(0, 17, 0)),
	}

	availability, err := FindCommonSlots(oneDay(0), [][]*store.Event{alice, bob}, DefaultWorkWindow(), 60)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(0, 10, 0), at(0, 11, 0)},
		{at(0, 12, 0), at(0, 13, 0)},
		{at(0, 14, 0), at(0, 15, 0)},
	}, slotBounds(availability.Slots))
	assert.Equal(t, 180, availability.TotalFreeMinutes)
	assert.Equal(t, "Mon, Mar 4, 10:00 AM - 11:00 AM", availability.Slots[0].Label)

	for _, slot := range availability.Slots {
		for _, events := range [][]*store.Event{alice, bob} {
			conflicts, err := FindConflicts(slot.Interval(), events)
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		}
	}

	availability, err = FindCommonSlots(oneDay(0), [][]*store.Event{alice, bob}, DefaultWorkWindow(), 90)
	require.NoError(t, err)
	assert.Empty(t, availability.Slots)
}

func TestFindCommonSlots_MinimumAppliedAfterIntersection(t *testing.T) {
	alice := []*store.Event{newEvent("a", at(0, 10, 0), at(0, 10, 20))}
	bob := []*store.Event{newEvent("b", at(0, 10, 50), at(0, 17, 0))}

	availability, err := FindCommonSlots(oneDay(0), [][]*store.Event{alice, bob}, DefaultWorkWindow(), 30)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(0, 9, 0), at(0, 10, 0)},
		{at(0, 10, 20), at(0, 10, 50)},
	}, slotBounds(availability.Slots))
}

func TestFindCommonSlots_SingleParticipantMatchesFreeSlots(t *testing.T) {
	events := []*store.Event{
		newEvent("a", at(0, 9, 30), at(0, 11, 0)),
		newEvent("b", at(1, 14, 0), at(1, 15, 0)),
	}
	rng := iv(at(0, 0, 0), at(2, 0, 0))

	common, err := FindCommonSlots(rng, [][]*store.Event{events}, DefaultWorkWindow(), 30)
	require.NoError(t, err)
	free, err := FindFreeSlots(rng, events, DefaultWorkWindow(), 30)
	require.NoError(t, err)
	assert.Equal(t, free, common)
}

func TestFindCommonSlots_Errors(t *testing.T) {
	_, err := FindCommonSlots(oneDay(0), nil, DefaultWorkWindow(), 30)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)

	_, err = FindCommonSlots(oneDay(0), [][]*store.Event{nil}, DefaultWorkWindow(), -5)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)

	_, err = FindCommonSlots(oneDay(0), [][]*store.Event{nil}, WorkWindow{StartHour: 10, EndHour: 10}, 30)
	assert.ErrorIs(t, err, calerr.ErrInvalidInterval)
}
