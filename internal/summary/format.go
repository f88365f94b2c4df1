package summary

import (
	"fmt"
	"strings"
)

// Text rendering for tool output. The MCP host shows these strings to the
// user, so they stay compact and human-readable.

const barWidth = 10

// FormatHoursMinutes renders decimal hours as "Xh Ym"
func FormatHoursMinutes(hours float64) string {
	h := int(hours)
	m := int((hours - float64(h)) * 60)
	return fmt.Sprintf("%dh %dm", h, m)
}

// bar renders a filled/empty progress bar for value out of max
func bar(value, max float64) string {
	filled := int(value * barWidth / max)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// scoreStateText renders a non-SCORED state as readable text
func scoreStateText(state string) string {
	return strings.ToLower(strings.ReplaceAll(state, "_", " "))
}

// FormatDailySummary renders the combined daily summary
func FormatDailySummary(s *DailySummary) string {
	lines := []string{"=== WHOOP Daily Summary ===", ""}

	lines = append(lines, "RECOVERY")
	switch {
	case s.Recovery != nil && s.Recovery.Score != nil:
		r := s.Recovery
		lines = append(lines, fmt.Sprintf("  Score: %.0f%%", *r.Score))
		if r.HRVMilli != nil {
			lines = append(lines, fmt.Sprintf("  HRV: %.1fms", *r.HRVMilli))
		}
		if r.RestingHeartRate != nil {
			lines = append(lines, fmt.Sprintf("  Resting HR: %.0fbpm", *r.RestingHeartRate))
		}
		if r.SpO2Pct != nil {
			lines = append(lines, fmt.Sprintf("  SpO2: %.1f%%", *r.SpO2Pct))
		}
	case s.Recovery != nil:
		lines = append(lines, "  "+scoreStateText(s.Recovery.ScoreState))
	default:
		lines = append(lines, "  Not available yet")
	}

	lines = append(lines, "", "SLEEP")
	switch {
	case s.Sleep != nil && s.Sleep.TotalSleepHours != nil:
		sl := s.Sleep
		lines = append(lines, "  Total: "+FormatHoursMinutes(*sl.TotalSleepHours))
		if sl.DeepSleepHours != nil && sl.RemSleepHours != nil {
			lines = append(lines, fmt.Sprintf("  Deep: %s | REM: %s",
				FormatHoursMinutes(*sl.DeepSleepHours), FormatHoursMinutes(*sl.RemSleepHours)))
		}
		if sl.PerformancePct != nil {
			lines = append(lines, fmt.Sprintf("  Performance: %.0f%%", *sl.PerformancePct))
		}
	case s.Sleep != nil:
		lines = append(lines, "  "+scoreStateText(s.Sleep.ScoreState))
	default:
		lines = append(lines, "  Not available yet")
	}

	lines = append(lines, "", "STRAIN")
	switch {
	case s.Strain != nil && s.Strain.Strain != nil:
		st := s.Strain
		lines = append(lines, fmt.Sprintf("  Score: %.1f / 21", *st.Strain))
		if st.Calories != nil {
			lines = append(lines, fmt.Sprintf("  Calories: %d kcal", *st.Calories))
		}
		if st.AverageHeartRate != nil {
			lines = append(lines, fmt.Sprintf("  Avg HR: %dbpm", *st.AverageHeartRate))
		}
	case s.Strain != nil:
		lines = append(lines, "  "+scoreStateText(s.Strain.ScoreState))
	default:
		lines = append(lines, "  Not available yet")
	}

	return strings.Join(lines, "\n")
}

// FormatSleepTrend renders a sleep trend with per-night bars and averages
func FormatSleepTrend(t *SleepTrendResult) string {
	if len(t.Samples) == 0 {
		return "No sleep data available."
	}

	lines := []string{fmt.Sprintf("Sleep Trend (last %d nights):", len(t.Samples)), ""}

	for _, s := range t.Samples {
		date := shortDate(s.Date)
		if s.TotalSleepHours == nil {
			lines = append(lines, fmt.Sprintf("%s: [not scored]", date))
			continue
		}
		hours := *s.TotalSleepHours
		perf := 0.0
		if s.PerformancePct != nil {
			perf = *s.PerformancePct
		}
		// 8h renders as a full bar
		lines = append(lines, fmt.Sprintf("%s: %s %.1fh (%.0f%% perf)", date, bar(hours, 8), hours, perf))
	}

	if t.MeanSleepHours > 0 {
		lines = append(lines, "", fmt.Sprintf("Average: %.1fh sleep, %.0f%% performance (latest %+.1fh vs average)",
			t.MeanSleepHours, t.MeanPerformancePct, t.LatestVsMeanHours))
	}

	return strings.Join(lines, "\n")
}

// FormatRecoveryTrend renders a recovery trend with per-day bars and averages
func FormatRecoveryTrend(t *RecoveryTrendResult) string {
	if len(t.Samples) == 0 {
		return "No recovery data available."
	}

	lines := []string{fmt.Sprintf("Recovery Trend (last %d days):", len(t.Samples)), ""}

	for _, s := range t.Samples {
		date := shortDate(s.Date)
		if s.Score == nil {
			lines = append(lines, fmt.Sprintf("%s: [not scored]", date))
			continue
		}
		line := fmt.Sprintf("%s: %s %.0f%%", date, bar(*s.Score, 100), *s.Score)
		if s.HRVMilli != nil {
			line += fmt.Sprintf(" (HRV: %.0fms)", *s.HRVMilli)
		}
		lines = append(lines, line)
	}

	if t.MeanScore > 0 {
		lines = append(lines, "", fmt.Sprintf("Average: %.0f%% recovery, %.0fms HRV (latest %+.0f%% vs average)",
			t.MeanScore, t.MeanHRVMilli, t.LatestVsMeanScore))
	}

	return strings.Join(lines, "\n")
}

// FormatWorkouts renders a workout listing with strain, calories, and zones
func FormatWorkouts(workouts []WorkoutSample) string {
	if len(workouts) == 0 {
		return "No workout data available."
	}

	lines := []string{fmt.Sprintf("Recent Workouts (%d):", len(workouts)), ""}

	for _, w := range workouts {
		sport := titleCase(strings.ReplaceAll(w.Sport, "_", " "))
		header := fmt.Sprintf("• %s - %s (%.0fmin)", w.Start, sport, w.DurationMinutes)
		if w.Strain == nil {
			lines = append(lines, header+" [not scored]", "")
			continue
		}

		lines = append(lines, header)
		detail := fmt.Sprintf("  Strain: %.1f", *w.Strain)
		if w.Calories != nil {
			detail += fmt.Sprintf(" | %d cal", *w.Calories)
		}
		if w.AverageHeartRate != nil {
			detail += fmt.Sprintf(" | Avg HR: %d bpm", *w.AverageHeartRate)
		}
		lines = append(lines, detail)
		if w.DistanceMiles != nil {
			lines = append(lines, fmt.Sprintf("  Distance: %.2f mi", *w.DistanceMiles))
		}

		var zones []string
		if w.Zone3Minutes != nil {
			zones = append(zones, fmt.Sprintf("Z3: %.0fm", *w.Zone3Minutes))
		}
		if w.Zone4Minutes != nil {
			zones = append(zones, fmt.Sprintf("Z4: %.0fm", *w.Zone4Minutes))
		}
		if w.Zone5Minutes != nil {
			zones = append(zones, fmt.Sprintf("Z5: %.0fm", *w.Zone5Minutes))
		}
		if len(zones) > 0 {
			lines = append(lines, "  Zones: "+strings.Join(zones, " | "))
		}
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// titleCase uppercases the first letter of each space-separated word
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// shortDate converts "2006-01-02" to "01/02" for compact listings
func shortDate(date string) string {
	if len(date) == 10 {
		return date[5:7] + "/" + date[8:10]
	}
	return date
}
