package v1

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/service/calendar"
)

func userIDParam(c echo.Context) (int32, error) {
	raw := c.Param("user")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, calerr.InvalidArgument(fmt.Sprintf("invalid user id %q", raw))
	}
	return int32(id), nil
}

func timeQuery(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, calerr.InvalidArgument(fmt.Sprintf("query parameter %q is required", name))
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, calerr.InvalidArgument(fmt.Sprintf("query parameter %q must be an RFC 3339 timestamp, got %q", name, raw))
	}
	return t, nil
}

func intervalQuery(c echo.Context) (calendar.TimeInterval, error) {
	start, err := timeQuery(c, "start")
	if err != nil {
		return calendar.TimeInterval{}, err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return calendar.TimeInterval{}, err
	}
	return calendar.NewInterval(start, end)
}

// intQuery returns the integer query parameter name, or def when it is absent.
func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, calerr.InvalidArgument(fmt.Sprintf("query parameter %q must be an integer, got %q", name, raw))
	}
	return n, nil
}

// windowQuery reads work_start and work_end over the service default.
func windowQuery(c echo.Context, def calendar.WorkWindow) (calendar.WorkWindow, error) {
	start, err := intQuery(c, "work_start", def.StartHour)
	if err != nil {
		return calendar.WorkWindow{}, err
	}
	end, err := intQuery(c, "work_end", def.EndHour)
	if err != nil {
		return calendar.WorkWindow{}, err
	}
	return calendar.WorkWindow{StartHour: start, EndHour: end}, nil
}
