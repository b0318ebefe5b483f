// Package calendar answers availability, conflict, workload and rescheduling questions
// over a user's events.
//
// The package has two layers:
//   - pure functions (FindConflicts, FindFreeSlots, Analyze, FindOptimalSlot,
//     FindCommonSlots, SuggestAlternatives) that compute over an event snapshot
//   - Service, which fetches the snapshot from an EventRepository under a timeout and
//     wraps each call with logging, metrics and tracing
//
// All day boundaries are computed in the location of the query range's start.
package calendar

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/calsense/plugin/filter"
	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/internal/observability"
	"github.com/hrygo/calsense/server/timezone"
	"github.com/hrygo/calsense/store"
)

const tracerName = "github.com/hrygo/calsense/server/service/calendar"

// Operation names used in logs, metrics and spans.
const (
	OpCheckConflicts      = "check_conflicts"
	OpFindFreeSlots       = "find_free_slots"
	OpAnalyzeBusyTime     = "analyze_busy_time"
	OpFindOptimalSlot     = "find_optimal_slot"
	OpFindCommonSlots     = "find_common_slots"
	OpSuggestAlternatives = "suggest_alternatives"
	OpRescheduleEvent     = "reschedule_event"
)

type service struct {
	repo          EventRepository
	location      *time.Location
	window        WorkWindow
	lookaheadDays int
	fetchTimeout  time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
	filter        *filter.Filter
	tracer        trace.Tracer
	now           func() time.Time
}

// Option configures a Service.
type Option func(*service)

// WithLocation sets the location day boundaries and labels are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithWorkWindow sets the default working window.
func WithWorkWindow(window WorkWindow) Option {
	return func(s *service) { s.window = window }
}

// WithLookaheadDays sets the reschedule horizon used when a caller passes none.
func WithLookaheadDays(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.lookaheadDays = days
		}
	}
}

// WithFetchTimeout bounds every repository call.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *service) { s.metrics = metrics }
}

// WithFilter enables CEL filter expressions in AnalyzeBusyTime.
func WithFilter(f *filter.Filter) Option {
	return func(s *service) { s.filter = f }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a calendar service over repo.
func NewService(repo EventRepository, opts ...Option) Service {
	s := &service{
		repo:          repo,
		location:      time.Local,
		window:        DefaultWorkWindow(),
		lookaheadDays: DefaultLookaheadDays,
		fetchTimeout:  DefaultFetchTimeout,
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) WorkWindow() WorkWindow {
	return s.window
}

func (s *service) Location() *time.Location {
	return s.location
}

// CheckConflicts returns the user's events overlapping candidate.
func (s *service) CheckConflicts(ctx context.Context, userID int32, candidate TimeInterval) (conflicts []*store.Event, err error) {
	ctx, op := s.begin(ctx, OpCheckConflicts, userID, candidate)
	defer func() { op.end(ctx, err, len(conflicts)) }()

	candidate = s.localize(candidate)
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	events, err := s.fetch(ctx, op, userID, candidate)
	if err != nil {
		return nil, err
	}
	return FindConflicts(candidate, events)
}

// FindFreeSlots returns the user's free slots inside window across rng.
func (s *service) FindFreeSlots(ctx context.Context, userID int32, rng TimeInterval, window WorkWindow, minDurationMinutes int) (availability *Availability, err error) {
	ctx, op := s.begin(ctx, OpFindFreeSlots, userID, rng)
	defer func() { op.end(ctx, err, availabilityCount(availability)) }()

	rng = s.localize(rng)
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	events, err := s.fetch(ctx, op, userID, rng)
	if err != nil {
		return nil, err
	}
	return FindFreeSlots(rng, events, window, minDurationMinutes)
}

// AnalyzeBusyTime aggregates the user's workload across rng.
func (s *service) AnalyzeBusyTime(ctx context.Context, userID int32, rng TimeInterval, expr string) (report *AnalyticsReport, err error) {
	ctx, op := s.begin(ctx, OpAnalyzeBusyTime, userID, rng)
	defer func() {
		count := 0
		if report != nil {
			count = report.MeetingCount
		}
		op.end(ctx, err, count)
	}()

	rng = s.localize(rng)
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if expr != "" && s.filter == nil {
		return nil, calerr.InvalidArgument("event filters are not enabled")
	}
	if expr != "" {
		// Reject bad expressions before fetching.
		if _, err := s.filter.Compile(expr); err != nil {
			return nil, calerr.Wrap(err, calerr.ErrCodeInvalidArgument, "invalid filter expression")
		}
	}

	events, err := s.fetch(ctx, op, userID, rng)
	if err != nil {
		return nil, err
	}
	if expr != "" {
		events, err = s.filter.Apply(expr, events, s.location)
		if err != nil {
			return nil, calerr.Wrap(err, calerr.ErrCodeInvalidArgument, "failed to apply filter")
		}
	}
	return Analyze(rng, events)
}

// FindOptimalSlot searches one calendar for slots that can hold durationMinutes.
func (s *service) FindOptimalSlot(ctx context.Context, userID int32, rng TimeInterval, durationMinutes int) (availability *Availability, err error) {
	ctx, op := s.begin(ctx, OpFindOptimalSlot, userID, rng)
	defer func() { op.end(ctx, err, availabilityCount(availability)) }()

	rng = s.localize(rng)
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	events, err := s.fetch(ctx, op, userID, rng)
	if err != nil {
		return nil, err
	}
	return FindOptimalSlot(rng, events, durationMinutes)
}

// FindCommonSlots fetches every participant's snapshot concurrently and intersects their
// free time. Any failed fetch fails the whole search.
func (s *service) FindCommonSlots(ctx context.Context, userIDs []int32, rng TimeInterval, window WorkWindow, durationMinutes int) (availability *Availability, err error) {
	ctx, op := s.begin(ctx, OpFindCommonSlots, 0, rng, attribute.Int("calendar.participants", len(userIDs)))
	defer func() { op.end(ctx, err, availabilityCount(availability)) }()

	if len(userIDs) == 0 {
		return nil, calerr.InvalidArgument("at least one participant is required")
	}
	if len(userIDs) > MaxParticipants {
		return nil, calerr.InvalidArgument(fmt.Sprintf("at most %d participants are supported, got %d", MaxParticipants, len(userIDs)))
	}
	seen := make(map[int32]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID <= 0 {
			return nil, calerr.InvalidArgument(fmt.Sprintf("invalid user id %d", userID))
		}
		if seen[userID] {
			return nil, calerr.InvalidArgument(fmt.Sprintf("participant %d is listed more than once", userID))
		}
		seen[userID] = true
	}
	rng = s.localize(rng)
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	snapshots := make([][]*store.Event, len(userIDs))
	sem := semaphore.NewWeighted(MaxConcurrentFetches)
	g, gctx := errgroup.WithContext(ctx)
	for i, userID := range userIDs {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return repositoryFailure(gctx, "event fetch aborted", err)
			}
			defer sem.Release(1)

			events, err := s.fetch(gctx, op, userID, rng)
			if err != nil {
				return err
			}
			snapshots[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FindCommonSlots(rng, snapshots, window, durationMinutes)
}

// SuggestAlternatives proposes new times for an event within the lookahead horizon. The
// event must start or end inside [now, now+lookaheadDays) to be found.
func (s *service) SuggestAlternatives(ctx context.Context, userID int32, eventID string, lookaheadDays int, policy ExclusionPolicy) (suggestion *RescheduleSuggestion, err error) {
	if lookaheadDays <= 0 {
		lookaheadDays = s.lookaheadDays
	}
	now := s.now().In(s.location)
	horizon := TimeInterval{Start: now, End: timezone.AddDays(now, lookaheadDays)}

	ctx, op := s.begin(ctx, OpSuggestAlternatives, userID, horizon, attribute.String("calendar.event_id", eventID))
	defer func() {
		count := 0
		if suggestion != nil {
			count = len(suggestion.Alternatives)
		}
		op.end(ctx, err, count)
	}()

	events, err := s.fetch(ctx, op, userID, horizon)
	if err != nil {
		return nil, err
	}
	return SuggestAlternatives(eventID, lookaheadDays, events, now, policy)
}

// RescheduleEvent moves an event to newStart, keeping its duration. The new interval must
// not overlap any other event of the user.
func (s *service) RescheduleEvent(ctx context.Context, userID int32, eventID string, newStart time.Time) (moved *store.Event, err error) {
	newStart = newStart.In(s.location)
	ctx, op := s.begin(ctx, OpRescheduleEvent, userID, TimeInterval{Start: newStart, End: newStart},
		attribute.String("calendar.event_id", eventID))
	defer func() {
		count := 0
		if moved != nil {
			count = 1
		}
		op.end(ctx, err, count)
	}()

	event, err := s.fetchByID(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	target := TimeInterval{Start: newStart, End: newStart.Add(event.Duration())}
	events, err := s.fetch(ctx, op, userID, target)
	if err != nil {
		return nil, err
	}
	others := make([]*store.Event, 0, len(events))
	for _, e := range events {
		if e.ID != event.ID {
			others = append(others, e)
		}
	}
	conflicts, err := FindConflicts(target, others)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, calerr.ScheduleConflict(len(conflicts)).WithContext("event_id", eventID)
	}

	update := event.Clone()
	update.Start, update.End = target.Start, target.End
	persistCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	moved, err = s.repo.PersistEvent(persistCtx, update)
	if err != nil {
		return nil, repositoryFailure(persistCtx, "failed to persist event", err)
	}
	return moved, nil
}

// fetch loads one snapshot for rng under the fetch timeout. The returned events are copies.
func (s *service) fetch(ctx context.Context, op *operation, userID int32, rng TimeInterval) ([]*store.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	events, err := s.repo.FetchEvents(ctx, userID, rng.Start, rng.End)
	if err != nil {
		return nil, repositoryFailure(ctx, "failed to fetch events", err).WithContext("user_id", userID)
	}

	snapshot := make([]*store.Event, 0, len(events))
	for _, event := range events {
		if event.Start.After(event.End) {
			return nil, calerr.InvalidInterval(fmt.Sprintf("event %s starts after it ends", event.ID))
		}
		snapshot = append(snapshot, event.Clone())
	}
	s.metrics.ObserveSnapshot(op.name, len(snapshot))
	op.req.Debug(ctx, "fetched event snapshot",
		slog.Int64(observability.LogFieldUserID, int64(userID)),
		slog.Int(observability.LogFieldEventCount, len(snapshot)))
	return snapshot, nil
}

func (s *service) fetchByID(ctx context.Context, userID int32, eventID string) (*store.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	event, err := s.repo.FetchEventByID(ctx, userID, eventID)
	if err != nil {
		return nil, repositoryFailure(ctx, "failed to fetch event", err).WithContext("event_id", eventID)
	}
	if event == nil {
		return nil, calerr.EventNotFound(eventID)
	}
	return event.Clone(), nil
}

// repositoryFailure wraps err, keeping a context timeout or cancellation in the cause chain
// even when the repository did not wrap it.
func repositoryFailure(ctx context.Context, msg string, err error) *calerr.CalendarError {
	if ctxErr := calerr.FromContext(ctx.Err()); ctxErr != nil && !stderrors.Is(err, ctx.Err()) {
		return calerr.RepositoryFailure(msg, stderrors.Join(ctxErr, err))
	}
	if ctxErr := calerr.FromContext(err); ctxErr != nil {
		return calerr.RepositoryFailure(msg, ctxErr)
	}
	return calerr.RepositoryFailure(msg, errors.WithStack(err))
}

// localize moves an interval into the service location without changing its instants.
func (s *service) localize(iv TimeInterval) TimeInterval {
	return TimeInterval{Start: iv.Start.In(s.location), End: iv.End.In(s.location)}
}

func availabilityCount(a *Availability) int {
	if a == nil {
		return 0
	}
	return a.SlotCount
}

// operation is the logging, metrics and tracing scope of one service call.
type operation struct {
	s    *service
	name string
	span trace.Span
	req  *observability.RequestContext
}

func (s *service) begin(ctx context.Context, name string, userID int32, rng TimeInterval, attrs ...attribute.KeyValue) (context.Context, *operation) {
	attrs = append(attrs,
		attribute.Int64("calendar.user_id", int64(userID)),
		attribute.String("calendar.range_start", rng.Start.Format(time.RFC3339)),
		attribute.String("calendar.range_end", rng.End.Format(time.RFC3339)),
	)
	ctx, span := s.tracer.Start(ctx, "calendar."+name, trace.WithAttributes(attrs...))
	req := observability.RequestContextFor(ctx, s.logger, name, userID)
	return ctx, &operation{s: s, name: name, span: span, req: req}
}

func (o *operation) end(ctx context.Context, err error, results int) {
	defer o.span.End()

	elapsed := o.req.Duration()
	if err != nil {
		code := calerr.GetCodeFromError(err, calerr.ErrCodeRepositoryFailure)
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, string(code))
		o.s.metrics.ObserveOperation(o.name, string(code), elapsed)
		o.req.Warn(ctx, "calendar operation failed",
			slog.String(observability.LogFieldErrorCode, string(code)),
			slog.String("error", err.Error()),
			slog.Int64(observability.LogFieldDuration, elapsed.Milliseconds()))
		return
	}

	o.span.SetAttributes(attribute.Int("calendar.results", results))
	o.s.metrics.ObserveOperation(o.name, "", elapsed)
	o.s.metrics.ObserveResults(o.name, results)
	o.req.Info(ctx, "calendar operation completed",
		slog.Int(observability.LogFieldResultCount, results),
		slog.Int64(observability.LogFieldDuration, elapsed.Milliseconds()))
}
