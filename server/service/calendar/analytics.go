package calendar

import (
	"fmt"
	"math"
	"slices"
	"time"

	calerr "github.com/hrygo/calsense/server/internal/errors"
	"github.com/hrygo/calsense/server/timezone"
	"github.com/hrygo/calsense/store"
)

const dayLength = 24 * time.Hour

// BusiestDay is the per-day bucket with the most meeting minutes.
type BusiestDay struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// AnalyticsReport aggregates workload over a date range. All-day events contribute nothing.
type AnalyticsReport struct {
	Range                      TimeInterval            `json:"range"`
	DayCount                   int                     `json:"day_count"`
	TotalMeetingMinutes        float64                 `json:"total_meeting_minutes"`
	TotalMeetingHours          float64                 `json:"total_meeting_hours"`
	AverageDailyMeetingMinutes float64                 `json:"average_daily_meeting_minutes"`
	AverageDailyMeetingHours   float64                 `json:"average_daily_meeting_hours"`
	AverageMeetingLength       float64                 `json:"average_meeting_length"`
	MeetingCount               int                     `json:"meeting_count"`
	CategoryCounts             *OrderedCounts[int]     `json:"category_counts"`
	DailyMeetingMinutes        *OrderedCounts[float64] `json:"daily_meeting_minutes"`
	BusiestDay                 *BusiestDay             `json:"busiest_day"`
}

// RoundHours converts minutes to hours rounded half-up to one decimal place.
func RoundHours(minutes float64) float64 {
	return math.Floor(minutes/60*10+0.5) / 10
}

// DayCount returns ceil((End - Start) / 24h).
func DayCount(rng TimeInterval) int {
	return int(math.Ceil(float64(rng.Duration()) / float64(dayLength)))
}

// Analyze folds events into an AnalyticsReport. Per-day buckets are keyed by the event's
// start date in rng.Start's location and kept in first-seen order; the busiest day is the
// first bucket with strictly more minutes than every bucket before it (nil when no bucket
// has any minutes).
func Analyze(rng TimeInterval, events []*store.Event) (*AnalyticsReport, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	dayCount := DayCount(rng)
	if dayCount <= 0 {
		return nil, calerr.InvalidRange(fmt.Sprintf("range %s - %s spans no days",
			rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339)))
	}

	loc := rng.Start.Location()
	report := &AnalyticsReport{
		Range:               rng,
		DayCount:            dayCount,
		CategoryCounts:      NewOrderedCounts[int](),
		DailyMeetingMinutes: NewOrderedCounts[float64](),
	}

	for _, event := range events {
		if event.AllDay {
			continue
		}
		minutes := float64(event.Duration()) / float64(time.Minute)
		report.TotalMeetingMinutes += minutes
		report.MeetingCount++

		if len(event.Categories) == 0 {
			report.CategoryCounts.Add(UncategorizedLabel, 1)
		}
		for i, category := range event.Categories {
			if !slices.Contains(event.Categories[:i], category) {
				report.CategoryCounts.Add(category, 1)
			}
		}

		report.DailyMeetingMinutes.Add(timezone.DateKey(event.Start, loc), minutes)
	}

	report.TotalMeetingHours = RoundHours(report.TotalMeetingMinutes)
	report.AverageDailyMeetingMinutes = report.TotalMeetingMinutes / float64(dayCount)
	report.AverageDailyMeetingHours = RoundHours(report.AverageDailyMeetingMinutes)
	if report.MeetingCount > 0 {
		report.AverageMeetingLength = report.TotalMeetingMinutes / float64(report.MeetingCount)
	}
	report.BusiestDay = busiestDay(report.DailyMeetingMinutes)

	return report, nil
}

func busiestDay(daily *OrderedCounts[float64]) *BusiestDay {
	var busiest *BusiestDay
	var top float64
	daily.Each(func(date string, minutes float64) {
		if minutes > top {
			top = minutes
			busiest = &BusiestDay{Date: date, Minutes: minutes, Hours: RoundHours(minutes)}
		}
	})
	return busiest
}
