package domain

import (
	"time"

	"github.com/montanaflynn/stats"
)

type DayProgress struct {
	DayIndex  int  `json:"day_index"`
	Completed bool `json:"completed"`
	Minutes   int  `json:"minutes"`
}

type WeeklyStats struct {
	DaysWithSessions  int           `json:"days_with_sessions"`
	DailyBreakdown    []DayProgress `json:"daily_breakdown"`
	CurrentDayIndex   int           `json:"current_day_index"`
	TotalMinutes      int           `json:"total_minutes"`
	MeanActiveMinutes float64       `json:"mean_active_day_minutes"`
	MedianSession     float64       `json:"median_session_minutes"`
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := t.UTC().Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// CompletedSession is the slice of a stored session the weekly summary reads.
type CompletedSession struct {
	Minutes     int
	CompletedAt time.Time
}

// SummarizeWeek builds the Monday-based breakdown for the week containing now.
func SummarizeWeek(sessions []CompletedSession, now time.Time) WeeklyStats {
	monday := WeekStart(now)
	days := make([]DayProgress, 7)
	for i := range days {
		days[i].DayIndex = i
	}

	var perSession []float64
	total := 0
	for _, s := range sessions {
		idx := int(s.CompletedAt.UTC().Sub(monday) / (24 * time.Hour))
		if s.CompletedAt.Before(monday) || idx > 6 {
			continue
		}
		days[idx].Completed = true
		days[idx].Minutes += s.Minutes
		total += s.Minutes
		perSession = append(perSession, float64(s.Minutes))
	}

	var active []float64
	for _, d := range days {
		if d.Completed {
			active = append(active, float64(d.Minutes))
		}
	}

	ws := WeeklyStats{
		DaysWithSessions: len(active),
		DailyBreakdown:   days,
		CurrentDayIndex:  int(now.UTC().Sub(monday) / (24 * time.Hour)),
		TotalMinutes:     total,
	}
	if mean, err := stats.Mean(active); err == nil {
		ws.MeanActiveMinutes = mean
	}
	if median, err := stats.Median(perSession); err == nil {
		ws.MedianSession = median
	}
	return ws
}
