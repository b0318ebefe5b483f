package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/store"
)

func TestFindConflicts_EmptyEvents(t *testing.T) {
	conflicts, err := FindConflicts(iv(at(0, 9, 0), at(0, 10, 0)), nil)
	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestFindConflicts_PreservesInputOrder(t *testing.T) {
	events := []*store.Event{
		newEvent("late", at(0, 10, 30), at(0, 11, 30)),
		newEvent("before", at(0, 8, 0), at(0, 9, 0)),
		newEvent("early", at(0, 9, 0), at(0, 9, 30)),
		newEvent("spanning", at(0, 8, 0), at(0, 12, 0)),
	}

	conflicts, err := FindConflicts(iv(at(0, 9, 0), at(0, 11, 0)), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "early", "spanning"}, eventIDs(conflicts))
}

func TestFindConflicts_InvalidCandidate(t *testing.T) {
	_, err := FindConflicts(iv(at(0, 11, 0), at(0, 10, 0)), []*store.Event{newEvent("a", at(0, 9, 0), at(0, 12, 0))})
	require.Error(t, err)
	assert.True(t, calerr.IsCode(err, calerr.ErrCodeInvalidInterval))
}
