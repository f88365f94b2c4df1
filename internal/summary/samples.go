package summary

import (
	"whoopmcp/internal/whoop"
)

// The sample types are read-only, JSON-serializable projections of the
// upstream records. Fields that depend on a SCORED record are pointers and
// stay nil for pending/unscorable records.

// RecoverySample is one day's recovery projection
type RecoverySample struct {
	Date             string   `json:"date"`
	ScoreState       string   `json:"score_state"`
	Score            *float64 `json:"score,omitempty"`
	HRVMilli         *float64 `json:"hrv_milli,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty"`
	SpO2Pct          *float64 `json:"spo2_pct,omitempty"`
}

// SleepSample is one night's sleep projection
type SleepSample struct {
	Date            string   `json:"date"`
	ScoreState      string   `json:"score_state"`
	Nap             bool     `json:"nap"`
	TotalSleepHours *float64 `json:"total_sleep_hours,omitempty"`
	DeepSleepHours  *float64 `json:"deep_sleep_hours,omitempty"`
	RemSleepHours   *float64 `json:"rem_sleep_hours,omitempty"`
	LightSleepHours *float64 `json:"light_sleep_hours,omitempty"`
	EfficiencyPct   *float64 `json:"efficiency_pct,omitempty"`
	PerformancePct  *float64 `json:"performance_pct,omitempty"`
}

// StrainSample is one cycle's strain projection
type StrainSample struct {
	Date             string   `json:"date"`
	ScoreState       string   `json:"score_state"`
	Strain           *float64 `json:"strain,omitempty"`
	Calories         *int     `json:"calories,omitempty"`
	AverageHeartRate *int     `json:"average_heart_rate,omitempty"`
	MaxHeartRate     *int     `json:"max_heart_rate,omitempty"`
}

// WorkoutSample is one workout's projection
type WorkoutSample struct {
	Sport            string   `json:"sport"`
	Start            string   `json:"start"`
	DurationMinutes  float64  `json:"duration_minutes"`
	ScoreState       string   `json:"score_state"`
	Strain           *float64 `json:"strain,omitempty"`
	Calories         *int     `json:"calories,omitempty"`
	AverageHeartRate *int     `json:"average_heart_rate,omitempty"`
	MaxHeartRate     *int     `json:"max_heart_rate,omitempty"`
	DistanceMiles    *float64 `json:"distance_miles,omitempty"`
	Zone3Minutes     *float64 `json:"zone3_minutes,omitempty"`
	Zone4Minutes     *float64 `json:"zone4_minutes,omitempty"`
	Zone5Minutes     *float64 `json:"zone5_minutes,omitempty"`
}

// DailySummary is the single-day composite of recovery, sleep, and strain.
// Sections the provider has not produced yet are nil.
type DailySummary struct {
	Date     string          `json:"date,omitempty"`
	Recovery *RecoverySample `json:"recovery,omitempty"`
	Sleep    *SleepSample    `json:"sleep,omitempty"`
	Strain   *StrainSample   `json:"strain,omitempty"`
}

// SleepTrendResult is a date-ordered sleep trend with aggregate stats
type SleepTrendResult struct {
	Days               int           `json:"days"`
	Samples            []SleepSample `json:"samples"`
	MeanSleepHours     float64       `json:"mean_sleep_hours"`
	MeanPerformancePct float64       `json:"mean_performance_pct"`
	LatestVsMeanHours  float64       `json:"latest_vs_mean_hours"`
}

// RecoveryTrendResult is a date-ordered recovery trend with aggregate stats
type RecoveryTrendResult struct {
	Days              int              `json:"days"`
	Samples           []RecoverySample `json:"samples"`
	MeanScore         float64          `json:"mean_score"`
	MeanHRVMilli      float64          `json:"mean_hrv_milli"`
	LatestVsMeanScore float64          `json:"latest_vs_mean_score"`
}

func recoverySample(r *whoop.Recovery) RecoverySample {
	sample := RecoverySample{
		Date:       r.CreatedAt.Format("2006-01-02"),
		ScoreState: r.ScoreState,
	}
	if r.Scored() {
		sample.Score = ptr(r.Score.RecoveryScore)
		sample.HRVMilli = ptr(r.Score.HRVRmssdMilli)
		sample.RestingHeartRate = ptr(r.Score.RestingHeartRate)
		sample.SpO2Pct = r.Score.SpO2Percentage
	}
	return sample
}

func sleepSample(s *whoop.Sleep) SleepSample {
	sample := SleepSample{
		Date:       s.Start.Format("2006-01-02"),
		ScoreState: s.ScoreState,
		Nap:        s.Nap,
	}
	if s.Scored() {
		stages := &s.Score.StageSummary
		sample.TotalSleepHours = ptr(stages.TotalSleepHours())
		sample.DeepSleepHours = ptr(stages.DeepSleepHours())
		sample.RemSleepHours = ptr(stages.RemSleepHours())
		sample.LightSleepHours = ptr(stages.LightSleepHours())
		sample.EfficiencyPct = s.Score.SleepEfficiencyPercentage
		sample.PerformancePct = s.Score.SleepPerformancePercentage
	}
	return sample
}

func strainSample(c *whoop.Cycle) StrainSample {
	sample := StrainSample{
		Date:       c.Start.Format("2006-01-02"),
		ScoreState: c.ScoreState,
	}
	if c.Scored() {
		sample.Strain = ptr(c.Score.Strain)
		sample.Calories = ptr(c.Score.Calories())
		sample.AverageHeartRate = ptr(c.Score.AverageHeartRate)
		sample.MaxHeartRate = ptr(c.Score.MaxHeartRate)
	}
	return sample
}

func workoutSample(w *whoop.Workout) WorkoutSample {
	sample := WorkoutSample{
		Sport:           w.SportName,
		Start:           w.Start.Format("2006-01-02 15:04"),
		DurationMinutes: w.DurationMinutes(),
		ScoreState:      w.ScoreState,
	}
	if w.Scored() {
		sample.Strain = ptr(w.Score.Strain)
		sample.Calories = ptr(w.Score.Calories())
		sample.AverageHeartRate = ptr(w.Score.AverageHeartRate)
		sample.MaxHeartRate = ptr(w.Score.MaxHeartRate)
		if w.Score.DistanceMeter != nil {
			sample.DistanceMiles = ptr(w.Score.DistanceMiles())
		}
		zones := &w.Score.ZoneDurations
		if zones.ZoneThreeMilli > 0 {
			sample.Zone3Minutes = ptr(zones.ZoneMinutes(3))
		}
		if zones.ZoneFourMilli > 0 {
			sample.Zone4Minutes = ptr(zones.ZoneMinutes(4))
		}
		if zones.ZoneFiveMilli > 0 {
			sample.Zone5Minutes = ptr(zones.ZoneMinutes(5))
		}
	}
	return sample
}

func ptr[T any](v T) *T {
	return &v
}
