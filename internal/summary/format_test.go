package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHoursMinutes(t *testing.T) {
	assert.Equal(t, "7h 30m", FormatHoursMinutes(7.5))
	assert.Equal(t, "0h 45m", FormatHoursMinutes(0.75))
	assert.Equal(t, "8h 0m", FormatHoursMinutes(8))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "██████████", bar(8, 8))
	assert.Equal(t, "█████░░░░░", bar(4, 8))
	assert.Equal(t, "░░░░░░░░░░", bar(0, 8))
	assert.Equal(t, "██████████", bar(12, 8), "over-max clamps to full")
}

func TestFormatDailySummary(t *testing.T) {
	score := 85.0
	hrv := 72.3
	rhr := 55.0
	total := 7.5
	deep := 1.5
	rem := 2.0
	perf := 92.0
	strain := 12.4
	calories := 2000
	avgHR := 82

	text := FormatDailySummary(&DailySummary{
		Date: "2025-01-15",
		Recovery: &RecoverySample{
			ScoreState:       "SCORED",
			Score:            &score,
			HRVMilli:         &hrv,
			RestingHeartRate: &rhr,
		},
		Sleep: &SleepSample{
			ScoreState:      "SCORED",
			TotalSleepHours: &total,
			DeepSleepHours:  &deep,
			RemSleepHours:   &rem,
			PerformancePct:  &perf,
		},
		Strain: &StrainSample{
			ScoreState:       "SCORED",
			Strain:           &strain,
			Calories:         &calories,
			AverageHeartRate: &avgHR,
		},
	})

	assert.Contains(t, text, "=== WHOOP Daily Summary ===")
	assert.Contains(t, text, "Score: 85%")
	assert.Contains(t, text, "HRV: 72.3ms")
	assert.Contains(t, text, "Total: 7h 30m")
	assert.Contains(t, text, "Deep: 1h 30m | REM: 2h 0m")
	assert.Contains(t, text, "Score: 12.4 / 21")
	assert.Contains(t, text, "Calories: 2000 kcal")
}

func TestFormatDailySummary_MissingAndPendingSections(t *testing.T) {
	text := FormatDailySummary(&DailySummary{
		Sleep: &SleepSample{ScoreState: "PENDING_SCORE"},
	})

	assert.Contains(t, text, "RECOVERY\n  Not available yet")
	assert.Contains(t, text, "SLEEP\n  pending score")
	assert.Contains(t, text, "STRAIN\n  Not available yet")
}

func TestFormatSleepTrend(t *testing.T) {
	eight := 8.0
	six := 6.0
	perf := 90.0

	text := FormatSleepTrend(&SleepTrendResult{
		Days: 3,
		Samples: []SleepSample{
			{Date: "2025-01-13", TotalSleepHours: &six, PerformancePct: &perf},
			{Date: "2025-01-14", ScoreState: "PENDING_SCORE"},
			{Date: "2025-01-15", TotalSleepHours: &eight, PerformancePct: &perf},
		},
		MeanSleepHours:     7,
		MeanPerformancePct: 90,
		LatestVsMeanHours:  1,
	})

	assert.Contains(t, text, "Sleep Trend (last 3 nights):")
	assert.Contains(t, text, "01/13: ")
	assert.Contains(t, text, "01/14: [not scored]")
	assert.Contains(t, text, "██████████ 8.0h (90% perf)")
	assert.Contains(t, text, "Average: 7.0h sleep, 90% performance (latest +1.0h vs average)")
}

func TestFormatSleepTrend_Empty(t *testing.T) {
	assert.Equal(t, "No sleep data available.", FormatSleepTrend(&SleepTrendResult{Days: 7}))
}

func TestFormatRecoveryTrend(t *testing.T) {
	high := 90.0
	low := 30.0
	hrv := 60.0

	text := FormatRecoveryTrend(&RecoveryTrendResult{
		Days: 2,
		Samples: []RecoverySample{
			{Date: "2025-01-14", Score: &low, HRVMilli: &hrv},
			{Date: "2025-01-15", Score: &high, HRVMilli: &hrv},
		},
		MeanScore:         60,
		MeanHRVMilli:      60,
		LatestVsMeanScore: 30,
	})

	assert.Contains(t, text, "Recovery Trend (last 2 days):")
	assert.Contains(t, text, "01/14: ███░░░░░░░ 30% (HRV: 60ms)")
	assert.Contains(t, text, "01/15: █████████░ 90% (HRV: 60ms)")
	assert.Contains(t, text, "Average: 60% recovery, 60ms HRV (latest +30% vs average)")
}

func TestFormatWorkouts(t *testing.T) {
	strain := 10.1
	calories := 500
	avgHR := 150
	maxHR := 178
	miles := 3.11
	zone4 := 10.0

	text := FormatWorkouts([]WorkoutSample{
		{
			Sport:            "trail_running",
			Start:            "2025-01-15 06:30",
			DurationMinutes:  40,
			ScoreState:       "SCORED",
			Strain:           &strain,
			Calories:         &calories,
			AverageHeartRate: &avgHR,
			MaxHeartRate:     &maxHR,
			DistanceMiles:    &miles,
			Zone4Minutes:     &zone4,
		},
		{
			Sport:           "cycling",
			Start:           "2025-01-14 18:00",
			DurationMinutes: 90,
			ScoreState:      "PENDING_SCORE",
		},
	})

	assert.Contains(t, text, "Recent Workouts (2):")
	assert.Contains(t, text, "• 2025-01-15 06:30 - Trail Running (40min)")
	assert.Contains(t, text, "Strain: 10.1 | 500 cal | Avg HR: 150 bpm")
	assert.Contains(t, text, "Distance: 3.11 mi")
	assert.Contains(t, text, "Zones: Z4: 10m")
	assert.Contains(t, text, "• 2025-01-14 18:00 - Cycling (90min) [not scored]")
	assert.False(t, strings.HasSuffix(text, "\n"), "no trailing blank lines")
}

func TestFormatWorkouts_Empty(t *testing.T) {
	assert.Equal(t, "No workout data available.", FormatWorkouts(nil))
}

func TestFormatDailySummary_SparseOptionalFields(t *testing.T) {
	// Every pointer field is independently optional; a sample carrying only
	// the score must render its known lines and skip the rest.
	score := 85.0
	total := 7.5
	strain := 12.4

	text := FormatDailySummary(&DailySummary{
		Recovery: &RecoverySample{ScoreState: "SCORED", Score: &score},
		Sleep:    &SleepSample{ScoreState: "SCORED", TotalSleepHours: &total},
		Strain:   &StrainSample{ScoreState: "SCORED", Strain: &strain},
	})

	assert.Contains(t, text, "Score: 85%")
	assert.NotContains(t, text, "HRV")
	assert.NotContains(t, text, "Resting HR")
	assert.Contains(t, text, "Total: 7h 30m")
	assert.NotContains(t, text, "Deep:")
	assert.Contains(t, text, "Score: 12.4 / 21")
	assert.NotContains(t, text, "Calories")
}

func TestFormatRecoveryTrend_SampleWithoutHRV(t *testing.T) {
	score := 60.0

	text := FormatRecoveryTrend(&RecoveryTrendResult{
		Days:    1,
		Samples: []RecoverySample{{Date: "2025-01-15", Score: &score}},
	})

	assert.Contains(t, text, "01/15: ██████░░░░ 60%")
	assert.NotContains(t, text, "HRV")
}

func TestFormatWorkouts_StrainOnly(t *testing.T) {
	strain := 8.2

	text := FormatWorkouts([]WorkoutSample{{
		Sport:           "yoga",
		Start:           "2025-01-15 07:00",
		DurationMinutes: 30,
		ScoreState:      "SCORED",
		Strain:          &strain,
	}})

	assert.Contains(t, text, "• 2025-01-15 07:00 - Yoga (30min)")
	assert.Contains(t, text, "Strain: 8.2")
	assert.NotContains(t, text, "cal")
	assert.NotContains(t, text, "Avg HR")
}
