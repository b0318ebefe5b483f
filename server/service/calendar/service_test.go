package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/calsense/plugin/filter"
	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/internal/observability"
	"github.com/hrygo/calsense/store"
)

// MockEventRepository is an in-memory EventRepository for testing.
type MockEventRepository struct {
	mu        sync.Mutex
	events    []*store.Event
	failUsers map[int32]error
	delay     time.Duration
	persisted []*store.Event
	fetches   atomic.Int32
}

func (m *MockEventRepository) FetchEvents(ctx context.Context, userID int32, start, end time.Time) ([]*store.Event, error) {
	m.fetches.Add(1)
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := m.failUsers[userID]; err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*store.Event
	for _, e := range m.events {
		if e.CreatorID == userID && e.Start.Before(end) && e.End.After(start) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockEventRepository) FetchEventByID(ctx context.Context, userID int32, id string) (*store.Event, error) {
	if err := m.failUsers[userID]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.CreatorID == userID && e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockEventRepository) PersistEvent(ctx context.Context, event *store.Event) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted = append(m.persisted, event)
	for i, e := range m.events {
		if e.ID == event.ID {
			m.events[i] = event
			return event, nil
		}
	}
	m.events = append(m.events, event)
	return event, nil
}

func ownedBy(userID int32, events ...*store.Event) []*store.Event {
	for _, e := range events {
		e.CreatorID = userID
	}
	return events
}

func newTestService(repo EventRepository, opts ...Option) Service {
	base := []Option{
		WithLocation(time.UTC),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return at(0, 8, 0) }),
	}
	return NewService(repo, append(base, opts...)...)
}

func TestService_CheckConflicts(t *testing.T) {
	ctx := context.Background()
	repo := &MockEventRepository{events: append(
		ownedBy(1,
			newEvent("review", at(0, 10, 0), at(0, 11, 0)),
			newEvent("lunch", at(0, 12, 0), at(0, 13, 0)),
		),
		ownedBy(2, newEvent("other-user", at(0, 10, 0), at(0, 11, 0)))...,
	)}
	svc := newTestService(repo)

	conflicts, err := svc.CheckConflicts(ctx, 1, iv(at(0, 10, 30), at(0, 12, 30)))
	require.NoError(t, err)
	assert.Equal(t, []string{"review", "lunch"}, eventIDs(conflicts))

	conflicts, err = svc.CheckConflicts(ctx, 1, iv(at(0, 11, 0), at(0, 12, 0)))
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	_, err = svc.CheckConflicts(ctx, 1, iv(at(0, 12, 0), at(0, 11, 0)))
	assert.ErrorIs(t, err, calerr.ErrInvalidInterval)
	assert.Equal(t, int32(2), repo.fetches.Load(), "invalid candidates must not reach the repository")
}

func TestService_FindFreeSlots(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1,
		newEvent("standup", at(0, 9, 0), at(0, 10, 0)),
		newEvent("lunch-sync", at(0, 11, 30), at(0, 12, 30)),
	)}
	svc := newTestService(repo)

	availability, err := svc.FindFreeSlots(context.Background(), 1, oneDay(0), svc.WorkWindow(), 30)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(0, 10, 0), at(0, 11, 30)},
		{at(0, 12, 30), at(0, 17, 0)},
	}, slotBounds(availability.Slots))
}

func TestService_SnapshotIsCopied(t *testing.T) {
	original := newEvent("standup", at(0, 9, 0), at(0, 10, 0), "work")
	repo := &MockEventRepository{events: ownedBy(1, original)}
	svc := newTestService(repo)

	conflicts, err := svc.CheckConflicts(context.Background(), 1, oneDay(0))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	conflicts[0].Categories[0] = "changed"
	assert.Equal(t, "work", original.Categories[0])
}

func TestService_AnalyzeBusyTime(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1,
		newEvent("planning", at(0, 9, 0), at(0, 10, 0), "work"),
		newEvent("coffee", at(0, 14, 0), at(0, 14, 30)),
	)}
	f, err := filter.New(8)
	require.NoError(t, err)
	svc := newTestService(repo, WithFilter(f))

	report, err := svc.AnalyzeBusyTime(context.Background(), 1, oneDay(0), "")
	require.NoError(t, err)
	assert.Equal(t, 90.0, report.TotalMeetingMinutes)
	assert.Equal(t, 45.0, report.AverageMeetingLength)

	report, err = svc.AnalyzeBusyTime(context.Background(), 1, oneDay(0), `"work" in categories`)
	require.NoError(t, err)
	assert.Equal(t, 60.0, report.TotalMeetingMinutes)
	assert.Equal(t, map[string]int{"work": 1}, report.CategoryCounts.Map())
}

func TestService_AnalyzeBusyTime_InvalidFilter(t *testing.T) {
	repo := &MockEventRepository{}
	f, err := filter.New(8)
	require.NoError(t, err)
	svc := newTestService(repo, WithFilter(f))

	_, err = svc.AnalyzeBusyTime(context.Background(), 1, oneDay(0), `duration_minutes +`)
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)
	assert.ErrorIs(t, err, filter.ErrInvalidExpression)
	assert.Zero(t, repo.fetches.Load())

	_, err = newTestService(repo).AnalyzeBusyTime(context.Background(), 1, oneDay(0), `all_day`)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)
}

func TestService_RepositoryFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &MockEventRepository{failUsers: map[int32]error{1: boom}}
	svc := newTestService(repo)

	report, err := svc.AnalyzeBusyTime(context.Background(), 1, oneDay(0), "")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, calerr.ErrRepositoryFailure)
	assert.ErrorIs(t, err, boom)

	_, err = svc.SuggestAlternatives(context.Background(), 1, "any", 7, nil)
	assert.ErrorIs(t, err, calerr.ErrRepositoryFailure)
}

func TestService_FetchTimeout(t *testing.T) {
	repo := &MockEventRepository{delay: time.Second}
	svc := newTestService(repo, WithFetchTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.FindFreeSlots(context.Background(), 1, oneDay(0), svc.WorkWindow(), 30)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, calerr.IsCode(err, calerr.ErrCodeRepositoryFailure))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_CallerCancellation(t *testing.T) {
	repo := &MockEventRepository{delay: time.Second}
	svc := newTestService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FindOptimalSlot(ctx, 1, oneDay(0), 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrRepositoryFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_FindOptimalSlot(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1, newEvent("a", at(0, 9, 0), at(0, 16, 0)))}
	svc := newTestService(repo)

	availability, err := svc.FindOptimalSlot(context.Background(), 1, oneDay(0), 60)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{{at(0, 16, 0), at(0, 17, 0)}}, slotBounds(availability.Slots))
}

func TestService_FindCommonSlots(t *testing.T) {
	var events []*store.Event
	events = append(events, ownedBy(1, newEvent("a1", at(0, 9, 0), at(0, 10, 0)), newEvent("a2", at(0, 13, 0), at(0, 14, 0)))...)
	events = append(events, ownedBy(2, newEvent("b1", at(0, 11, 0), at(0, 12, 0)), newEvent("b2", at(0, 15, 0), at(0, 17, 0)))...)
	events = append(events, ownedBy(3, newEvent("c1", at(0, 10, 30), at(0, 11, 0)))...)
	repo := &MockEventRepository{events: events}
	svc := newTestService(repo)

	availability, err := svc.FindCommonSlots(context.Background(), []int32{1, 2, 3}, oneDay(0), svc.WorkWindow(), 30)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(0, 10, 0), at(0, 10, 30)},
		{at(0, 12, 0), at(0, 13, 0)},
		{at(0, 14, 0), at(0, 15, 0)},
	}, slotBounds(availability.Slots))
	assert.Equal(t, int32(3), repo.fetches.Load())
}

func TestService_FindCommonSlots_OneFailureFailsAll(t *testing.T) {
	repo := &MockEventRepository{failUsers: map[int32]error{7: errors.New("calendar offline")}}
	svc := newTestService(repo)

	ids := make([]int32, 0, 20)
	for i := int32(1); i <= 20; i++ {
		ids = append(ids, i)
	}
	availability, err := svc.FindCommonSlots(context.Background(), ids, oneDay(0), svc.WorkWindow(), 30)
	require.Error(t, err)
	assert.Nil(t, availability)
	assert.ErrorIs(t, err, calerr.ErrRepositoryFailure)
}

func TestService_FindCommonSlots_ParticipantLimits(t *testing.T) {
	svc := newTestService(&MockEventRepository{})

	_, err := svc.FindCommonSlots(context.Background(), nil, oneDay(0), svc.WorkWindow(), 30)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)

	_, err = svc.FindCommonSlots(context.Background(), make([]int32, MaxParticipants+1), oneDay(0), svc.WorkWindow(), 30)
	assert.ErrorIs(t, err, calerr.ErrInvalidArgument)
}

func TestService_FindCommonSlots_InvalidParticipants(t *testing.T) {
	tests := []struct {
		name    string
		userIDs []int32
	}{
		{name: "zero id", userIDs: []int32{1, 0}},
		{name: "negative id", userIDs: []int32{-3}},
		{name: "duplicate id", userIDs: []int32{1, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockEventRepository{}
			svc := newTestService(repo)

			availability, err := svc.FindCommonSlots(context.Background(), tt.userIDs, oneDay(0), svc.WorkWindow(), 30)
			assert.ErrorIs(t, err, calerr.ErrInvalidArgument)
			assert.Nil(t, availability)
			assert.Zero(t, repo.fetches.Load())
		})
	}
}

func TestService_SuggestAlternatives(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1,
		newEvent("sync", at(0, 10, 0), at(0, 11, 0)),
		newEvent("tuesday-block", at(1, 9, 0), at(1, 12, 0)),
	)}
	svc := newTestService(repo)

	suggestion, err := svc.SuggestAlternatives(context.Background(), 1, "sync", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]time.Time{
		{at(1, 12, 0), at(1, 17, 0)},
		{at(2, 9, 0), at(2, 17, 0)},
	}, slotBounds(suggestion.Alternatives))

	_, err = svc.SuggestAlternatives(context.Background(), 1, "sync", 0, nil)
	require.NoError(t, err)

	_, err = svc.SuggestAlternatives(context.Background(), 2, "sync", 3, nil)
	assert.ErrorIs(t, err, calerr.ErrEventNotFound)
}

func TestService_SuggestAlternatives_OutsideLookahead(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1, newEvent("far", at(20, 10, 0), at(20, 11, 0)))}
	svc := newTestService(repo, WithLookaheadDays(14))

	_, err := svc.SuggestAlternatives(context.Background(), 1, "far", 0, nil)
	assert.ErrorIs(t, err, calerr.ErrEventNotFound)
}

func TestService_RescheduleEvent(t *testing.T) {
	repo := &MockEventRepository{events: ownedBy(1,
		newEvent("sync", at(0, 10, 0), at(0, 11, 0), "work"),
		newEvent("lunch", at(0, 12, 0), at(0, 13, 0)),
	)}
	svc := newTestService(repo)
	ctx := context.Background()

	moved, err := svc.RescheduleEvent(ctx, 1, "sync", at(0, 10, 30))
	require.NoError(t, err)
	assert.Equal(t, at(0, 10, 30), moved.Start)
	assert.Equal(t, at(0, 11, 30), moved.End)
	assert.Equal(t, []string{"work"}, moved.Categories)
	require.Len(t, repo.persisted, 1)

	_, err = svc.RescheduleEvent(ctx, 1, "sync", at(0, 11, 45))
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrScheduleConflict)
	assert.Len(t, repo.persisted, 1)

	_, err = svc.RescheduleEvent(ctx, 1, "missing", at(1, 10, 0))
	assert.ErrorIs(t, err, calerr.ErrEventNotFound)
}

func TestService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	repo := &MockEventRepository{events: ownedBy(1, newEvent("a", at(0, 9, 0), at(0, 10, 0)))}
	svc := newTestService(repo, WithMetrics(metrics))

	_, err = svc.FindFreeSlots(context.Background(), 1, oneDay(0), svc.WorkWindow(), 30)
	require.NoError(t, err)
	_, err = svc.CheckConflicts(context.Background(), 1, iv(at(0, 12, 0), at(0, 11, 0)))
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "calsense_calendar_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
