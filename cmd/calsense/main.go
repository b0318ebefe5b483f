package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/calsense/internal/profile"
	"github.com/hrygo/calsense/plugin/ics"
	"github.com/hrygo/calsense/server"
	"github.com/hrygo/calsense/server/service/calendar"
	"github.com/hrygo/calsense/server/timezone"
	"github.com/hrygo/calsense/store"
	"github.com/hrygo/calsense/store/db"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:           "calsense",
		Short:         `Calendar intelligence: conflicts, free time, workload analytics and rescheduling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
)

func init() {
	defaults := &profile.Profile{}
	defaults.FromEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("timezone", defaults.Timezone, "IANA location day boundaries are computed in")
	flags.Int("work-start-hour", defaults.WorkStartHour, "start of the working window")
	flags.Int("work-end-hour", defaults.WorkEndHour, "end of the working window")
	flags.Int("lookahead-days", defaults.LookaheadDays, "default reschedule horizon in days")
	flags.Duration("fetch-timeout", defaults.FetchTimeout, "timeout of every repository call")
	flags.Float64("rate-limit-rps", defaults.RateLimitPerSecond, "API requests per second per user")
	flags.Int("rate-limit-burst", defaults.RateLimitBurst, "API burst per user")
	flags.String("redis-addr", defaults.RedisAddr, "Redis address for the shared rate limiter")
	flags.String("otlp-endpoint", defaults.OTLPEndpoint, "OTLP gRPC endpoint for traces")
	flags.String("ics", "", "read events from this iCalendar file instead of the database")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("calsense")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCommands()...)
}

// loadProfile builds the profile from flags, CALSENSE_* variables and defaults, in that order.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:               viper.GetString("mode"),
		Addr:               viper.GetString("addr"),
		Port:               viper.GetInt("port"),
		Data:               viper.GetString("data"),
		Driver:             viper.GetString("driver"),
		DSN:                viper.GetString("dsn"),
		Version:            version,
		Timezone:           viper.GetString("timezone"),
		WorkStartHour:      viper.GetInt("work-start-hour"),
		WorkEndHour:        viper.GetInt("work-end-hour"),
		LookaheadDays:      viper.GetInt("lookahead-days"),
		FetchTimeout:       viper.GetDuration("fetch-timeout"),
		RateLimitPerSecond: viper.GetFloat64("rate-limit-rps"),
		RateLimitBurst:     viper.GetInt("rate-limit-burst"),
		RedisAddr:          viper.GetString("redis-addr"),
		OTLPEndpoint:       viper.GetString("otlp-endpoint"),
	}
	if viper.GetString("ics") != "" {
		// The database is not opened, so its data directory need not exist.
		if p.Data == "" {
			p.Data = os.TempDir()
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if p.Mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler).With(slog.String("version", p.Version))
}

// openRepository returns the event source: the --ics file when given, the database otherwise.
// The returned close function releases it.
func openRepository(ctx context.Context, p *profile.Profile) (calendar.EventRepository, func() error, error) {
	if path := viper.GetString("ics"); path != "" {
		loc, err := timezone.ParseTimezone(p.Timezone)
		if err != nil {
			return nil, nil, err
		}
		repo, err := ics.LoadFile(path, loc)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, err
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, nil, errors.Wrap(err, "failed to migrate")
	}
	return storeInstance, storeInstance.Close, nil
}

func serve(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	logger := newLogger(p)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, p)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, p)
	if err != nil {
		return err
	}

	s, err := server.NewServer(ctx, p, repo, logger)
	if err != nil {
		_ = closeRepo()
		return errors.Wrap(err, "failed to create server")
	}

	c := make(chan os.Signal, 1)
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := s.Start(ctx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			_ = closeRepo()
			return errors.Wrap(err, "failed to start server")
		}
	}
	printGreetings(p)

	go func() {
		<-c
		s.Shutdown(ctx)
		if err := closeRepo(); err != nil {
			logger.Error("failed to close repository", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to flush traces", slog.String("error", err.Error()))
		}
		cancel()
	}()

	<-ctx.Done()
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("calsense %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
		fmt.Printf("Accessing calsense by http://localhost:%d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
