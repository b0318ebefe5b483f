package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/service/calendar"
	"github.com/hrygo/calsense/store"
)

// ConflictsResponse lists the events overlapping a candidate interval.
type ConflictsResponse struct {
	Candidate     calendar.TimeInterval `json:"candidate"`
	HasConflict   bool                  `json:"has_conflict"`
	ConflictCount int                   `json:"conflict_count"`
	Conflicts     []*store.Event        `json:"conflicts"`
}

// CommonSlotsRequest is the body of POST /api/v1/common-slots.
type CommonSlotsRequest struct {
	Participants    []int32   `json:"participants"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	WorkStartHour   *int      `json:"work_start_hour,omitempty"`
	WorkEndHour     *int      `json:"work_end_hour,omitempty"`
}

// RescheduleRequest is the body of POST .../events/:id/reschedule.
type RescheduleRequest struct {
	Start time.Time `json:"start"`
}

// CheckConflicts handles GET /api/v1/users/:user/conflicts?start&end.
func (s *APIV1Service) CheckConflicts(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	candidate, err := intervalQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	conflicts, err := s.Calendar.CheckConflicts(c.Request().Context(), userID, candidate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ConflictsResponse{
		Candidate:     candidate,
		HasConflict:   len(conflicts) > 0,
		ConflictCount: len(conflicts),
		Conflicts:     conflicts,
	})
}

// FindFreeSlots handles GET /api/v1/users/:user/free-slots?start&end&min_duration&work_start&work_end.
func (s *APIV1Service) FindFreeSlots(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := intervalQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	minDuration, err := intQuery(c, "min_duration", calendar.DefaultMinSlotMinutes)
	if err != nil {
		return respondError(c, err)
	}
	window, err := windowQuery(c, s.Calendar.WorkWindow())
	if err != nil {
		return respondError(c, err)
	}

	availability, err := s.Calendar.FindFreeSlots(c.Request().Context(), userID, rng, window, minDuration)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, availability)
}

// AnalyzeBusyTime handles GET /api/v1/users/:user/analytics?start&end&filter.
func (s *APIV1Service) AnalyzeBusyTime(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := intervalQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	report, err := s.Calendar.AnalyzeBusyTime(c.Request().Context(), userID, rng, c.QueryParam("filter"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// FindOptimalSlot handles GET /api/v1/users/:user/optimal-slot?start&end&duration.
func (s *APIV1Service) FindOptimalSlot(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := intervalQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	duration, err := intQuery(c, "duration", calendar.DefaultMeetingMinutes)
	if err != nil {
		return respondError(c, err)
	}

	availability, err := s.Calendar.FindOptimalSlot(c.Request().Context(), userID, rng, duration)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, availability)
}

// FindCommonSlots handles POST /api/v1/common-slots.
func (s *APIV1Service) FindCommonSlots(c echo.Context) error {
	var req CommonSlotsRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, calerr.Wrap(err, calerr.ErrCodeInvalidArgument, "invalid request body"))
	}
	rng, err := calendar.NewInterval(req.Start, req.End)
	if err != nil {
		return respondError(c, err)
	}
	window := s.Calendar.WorkWindow()
	if req.WorkStartHour != nil {
		window.StartHour = *req.WorkStartHour
	}
	if req.WorkEndHour != nil {
		window.EndHour = *req.WorkEndHour
	}

	availability, err := s.Calendar.FindCommonSlots(c.Request().Context(), req.Participants, rng, window, req.DurationMinutes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, availability)
}

// SuggestAlternatives handles GET /api/v1/users/:user/events/:id/alternatives?lookahead_days&policy.
func (s *APIV1Service) SuggestAlternatives(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	lookahead, err := intQuery(c, "lookahead_days", 0)
	if err != nil {
		return respondError(c, err)
	}
	policy, err := calendar.ExclusionPolicyByName(c.QueryParam("policy"))
	if err != nil {
		return respondError(c, err)
	}

	suggestion, err := s.Calendar.SuggestAlternatives(c.Request().Context(), userID, c.Param("id"), lookahead, policy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, suggestion)
}

// RescheduleEvent handles POST /api/v1/users/:user/events/:id/reschedule.
func (s *APIV1Service) RescheduleEvent(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, calerr.Wrap(err, calerr.ErrCodeInvalidArgument, "invalid request body"))
	}
	if req.Start.IsZero() {
		return respondError(c, calerr.InvalidArgument("start is required"))
	}

	event, err := s.Calendar.RescheduleEvent(c.Request().Context(), userID, c.Param("id"), req.Start)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}
