package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/calsense/internal/profile"
	"github.com/hrygo/calsense/server/service/calendar"
)

// APIV1Service serves the calendar operations as a JSON API.
type APIV1Service struct {
	Profile  *profile.Profile
	Calendar calendar.Service
}

func NewAPIV1Service(profile *profile.Profile, calendarService calendar.Service) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Calendar: calendarService,
	}
}

// RegisterRoutes mounts the API under /api/v1. Extra middlewares, such as rate limiting,
// run after CORS for every API route.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	group := echoServer.Group("/api/v1", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	group.Use(middlewares...)

	group.GET("/users/:user/conflicts", s.CheckConflicts)
	group.GET("/users/:user/free-slots", s.FindFreeSlots)
	group.GET("/users/:user/analytics", s.AnalyzeBusyTime)
	group.GET("/users/:user/optimal-slot", s.FindOptimalSlot)
	group.POST("/common-slots", s.FindCommonSlots)
	group.GET("/users/:user/events/:id/alternatives", s.SuggestAlternatives)
	group.POST("/users/:user/events/:id/reschedule", s.RescheduleEvent)
}
