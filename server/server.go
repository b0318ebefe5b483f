package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/calsense/internal/profile"
	"github.com/hrygo/calsense/plugin/filter"
	"github.com/hrygo/calsense/server/internal/observability"
	"github.com/hrygo/calsense/server/middleware"
	apiv1 "github.com/hrygo/calsense/server/router/api/v1"
	"github.com/hrygo/calsense/server/service/calendar"
	"github.com/hrygo/calsense/server/timezone"
)

const filterCacheSize = 256

type Server struct {
	Profile  *profile.Profile
	Calendar calendar.Service

	echoServer *echo.Echo
	registry   *prometheus.Registry
	redis      *redis.Client
	logger     *slog.Logger
}

// NewCalendarService builds the calendar service the profile describes over repo. Metrics
// are registered with reg when it is not nil.
func NewCalendarService(p *profile.Profile, repo calendar.EventRepository, logger *slog.Logger, reg prometheus.Registerer) (calendar.Service, error) {
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return nil, err
	}
	eventFilter, err := filter.New(filterCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create event filter")
	}

	opts := []calendar.Option{
		calendar.WithLocation(loc),
		calendar.WithLogger(logger),
		calendar.WithFilter(eventFilter),
		calendar.WithLookaheadDays(p.LookaheadDays),
		calendar.WithFetchTimeout(p.FetchTimeout),
	}
	if p.WorkStartHour != 0 || p.WorkEndHour != 0 {
		opts = append(opts, calendar.WithWorkWindow(calendar.WorkWindow{StartHour: p.WorkStartHour, EndHour: p.WorkEndHour}))
	}
	if reg != nil {
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
		opts = append(opts, calendar.WithMetrics(metrics))
	}
	return calendar.NewService(repo, opts...), nil
}

// NewServer wires the API, health and metrics endpoints over repo.
func NewServer(ctx context.Context, p *profile.Profile, repo calendar.EventRepository, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Profile:  p,
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	calendarService, err := NewCalendarService(p, repo, logger, s.registry)
	if err != nil {
		return nil, err
	}
	s.Calendar = calendarService

	limiter, err := s.newLimiter(ctx)
	if err != nil {
		return nil, err
	}

	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	s.echoServer = echoServer

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	apiV1Service := apiv1.NewAPIV1Service(p, calendarService)
	apiV1Service.RegisterRoutes(echoServer,
		middleware.RequestContext(logger),
		middleware.RateLimit(limiter, middleware.UserOrIPKey, logger, s.redis != nil),
	)

	return s, nil
}

// newLimiter returns a Redis fixed-window limiter when a Redis address is configured, and
// an in-process token bucket otherwise.
func (s *Server) newLimiter(ctx context.Context) (middleware.Limiter, error) {
	if s.Profile.RedisAddr == "" {
		return middleware.NewRateLimiter(s.Profile.RateLimitPerSecond, s.Profile.RateLimitBurst), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: s.Profile.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", s.Profile.RedisAddr)
	}
	s.redis = rdb

	limit := int(math.Ceil(s.Profile.RateLimitPerSecond))
	return middleware.NewRedisRateLimiter(rdb, limit, time.Second, "calsense:rl"), nil
}

// Handler exposes the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.logger.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("calsense stopped properly")
}
