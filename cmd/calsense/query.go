package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/calsense/server"
	"github.com/hrygo/calsense/server/service/calendar"
	"github.com/hrygo/calsense/server/timezone"
)

const defaultQueryDays = 7

// rangeFlags are the user and time range flags shared by the query commands.
type rangeFlags struct {
	user  int32
	start string
	end   string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int32Var(&f.user, "user", 1, "user id")
	cmd.Flags().StringVar(&f.start, "start", "", "range start, RFC 3339 or YYYY-MM-DD (default: start of today)")
	cmd.Flags().StringVar(&f.end, "end", "", fmt.Sprintf("range end, RFC 3339 or YYYY-MM-DD (default: start + %d days)", defaultQueryDays))
}

func (f *rangeFlags) interval(loc *time.Location, now time.Time) (calendar.TimeInterval, error) {
	start := timezone.StartOfDay(now, loc)
	if f.start != "" {
		t, err := parseTime(f.start, loc)
		if err != nil {
			return calendar.TimeInterval{}, err
		}
		start = t
	}
	end := timezone.AddDays(start, defaultQueryDays)
	if f.end != "" {
		t, err := parseTime(f.end, loc)
		if err != nil {
			return calendar.TimeInterval{}, err
		}
		end = t
	}
	return calendar.NewInterval(start, end)
}

var timeLayouts = []string{"2006-01-02T15:04", "2006-01-02"}

// parseTime accepts an RFC 3339 timestamp, or a wall-clock date or date-time in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse time %q", value)
}

// runQuery opens the configured repository, runs fn against a calendar service over it and
// prints the result as JSON.
func runQuery(cmd *cobra.Command, fn func(ctx context.Context, svc calendar.Service) (any, error)) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	logger := newLogger(p)
	ctx := cmd.Context()

	shutdownTracing, err := setupTracing(ctx, p)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, p)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Warn("failed to close repository", slog.String("error", err.Error()))
		}
	}()

	svc, err := server.NewCalendarService(p, repo, logger, nil)
	if err != nil {
		return err
	}
	result, err := fn(ctx, svc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func queryCommands() []*cobra.Command {
	return []*cobra.Command{
		freeCommand(),
		analyzeCommand(),
		conflictsCommand(),
		suggestCommand(),
	}
}

func freeCommand() *cobra.Command {
	var rf rangeFlags
	var minDuration int
	cmd := &cobra.Command{
		Use:   "free",
		Short: "List free slots inside the working window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(ctx context.Context, svc calendar.Service) (any, error) {
				rng, err := rf.interval(svc.Location(), time.Now())
				if err != nil {
					return nil, err
				}
				return svc.FindFreeSlots(ctx, rf.user, rng, svc.WorkWindow(), minDuration)
			})
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&minDuration, "min-duration", calendar.DefaultMinSlotMinutes, "shortest slot to report, in minutes")
	return cmd
}

func analyzeCommand() *cobra.Command {
	var rf rangeFlags
	var filter string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize meeting load over a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, func(ctx context.Context, svc calendar.Service) (any, error) {
				rng, err := rf.interval(svc.Location(), time.Now())
				if err != nil {
					return nil, err
				}
				return svc.AnalyzeBusyTime(ctx, rf.user, rng, filter)
			})
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "", `CEL expression selecting events, e.g. '"work" in categories'`)
	return cmd
}

func conflictsCommand() *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List events overlapping the interval [start, end)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rf.start == "" || rf.end == "" {
				return errors.New("--start and --end are required")
			}
			return runQuery(cmd, func(ctx context.Context, svc calendar.Service) (any, error) {
				candidate, err := rf.interval(svc.Location(), time.Now())
				if err != nil {
					return nil, err
				}
				return svc.CheckConflicts(ctx, rf.user, candidate)
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func suggestCommand() *cobra.Command {
	var (
		user      int32
		eventID   string
		lookahead int
		policy    string
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Propose new times for an event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exclusion, err := calendar.ExclusionPolicyByName(policy)
			if err != nil {
				return err
			}
			return runQuery(cmd, func(ctx context.Context, svc calendar.Service) (any, error) {
				return svc.SuggestAlternatives(ctx, user, eventID, lookahead, exclusion)
			})
		},
	}
	cmd.Flags().Int32Var(&user, "user", 1, "user id")
	cmd.Flags().StringVar(&eventID, "event", "", "id of the event to move")
	cmd.Flags().IntVar(&lookahead, "lookahead", 0, "days to search ahead (default: --lookahead-days)")
	cmd.Flags().StringVar(&policy, "policy", "same-day", `which slots to rule out: "same-day" or "none"`)
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
