package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	calerr "github.com/hrygo/calsense/server/internal/errors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// httpStatus maps an error to the HTTP status it is reported with.
func httpStatus(err error) int {
	switch calerr.GetCodeFromError(err, "") {
	case calerr.ErrCodeInvalidInterval, calerr.ErrCodeInvalidRange, calerr.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case calerr.ErrCodeEventNotFound:
		return http.StatusNotFound
	case calerr.ErrCodeScheduleConflict:
		return http.StatusConflict
	case calerr.ErrCodeRepositoryFailure:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case calerr.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case calerr.ErrCodeContextCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	status := httpStatus(err)
	resp := ErrorResponse{
		Code:    string(calerr.GetCodeFromError(err, "INTERNAL")),
		Message: err.Error(),
	}
	var calErr *calerr.CalendarError
	if errors.As(err, &calErr) && len(calErr.Context) > 0 {
		resp.Details = calErr.Context
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "calendar request failed",
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		if status == http.StatusInternalServerError {
			resp.Message = "internal error"
		}
	}
	return c.JSON(status, resp)
}
