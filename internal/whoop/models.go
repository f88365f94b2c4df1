package whoop

import "time"

// Score states reported by the WHOOP API. Only SCORED records carry a
// usable score payload.
const (
	ScoreStateScored       = "SCORED"
	ScoreStatePendingScore = "PENDING_SCORE"
	ScoreStateUnscorable   = "UNSCORABLE"
)

// kilojoulesPerKcal converts the API's energy values to dietary calories.
const kilojoulesPerKcal = 4.184

const metersPerMile = 1609.344

// All response models parse defensively: optional fields are pointers or
// zero-tolerant, and unknown upstream additions are ignored, so provider
// shape drift never breaks aggregation. Only identifiers and timestamps
// are relied upon.

// RecoveryScore holds the scored portion of a recovery record
type RecoveryScore struct {
	RecoveryScore    float64  `json:"recovery_score"`
	RestingHeartRate float64  `json:"resting_heart_rate"`
	HRVRmssdMilli    float64  `json:"hrv_rmssd_milli"`
	SpO2Percentage   *float64 `json:"spo2_percentage,omitempty"`
	SkinTempCelsius  *float64 `json:"skin_temp_celsius,omitempty"`
	UserCalibrating  bool     `json:"user_calibrating,omitempty"`
}

// Recovery is a single WHOOP recovery record
type Recovery struct {
	CycleID    int64          `json:"cycle_id"`
	SleepID    string         `json:"sleep_id,omitempty"`
	UserID     int64          `json:"user_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ScoreState string         `json:"score_state"`
	Score      *RecoveryScore `json:"score,omitempty"`
}

// Scored reports whether the record carries a usable score
func (r *Recovery) Scored() bool {
	return r != nil && r.ScoreState == ScoreStateScored && r.Score != nil
}

// SleepStageSummary breaks a sleep down into its stages, in milliseconds
type SleepStageSummary struct {
	TotalInBedTimeMilli         int64 `json:"total_in_bed_time_milli"`
	TotalAwakeTimeMilli         int64 `json:"total_awake_time_milli"`
	TotalNoDataTimeMilli        int64 `json:"total_no_data_time_milli"`
	TotalLightSleepTimeMilli    int64 `json:"total_light_sleep_time_milli"`
	TotalSlowWaveSleepTimeMilli int64 `json:"total_slow_wave_sleep_time_milli"`
	TotalRemSleepTimeMilli      int64 `json:"total_rem_sleep_time_milli"`
	SleepCycleCount             int   `json:"sleep_cycle_count"`
	DisturbanceCount            int   `json:"disturbance_count"`
}

// TotalSleepHours is the time actually asleep (awake time excluded)
func (s *SleepStageSummary) TotalSleepHours() float64 {
	total := s.TotalLightSleepTimeMilli + s.TotalSlowWaveSleepTimeMilli + s.TotalRemSleepTimeMilli
	return milliToHours(total)
}

// DeepSleepHours is slow wave sleep in hours
func (s *SleepStageSummary) DeepSleepHours() float64 {
	return milliToHours(s.TotalSlowWaveSleepTimeMilli)
}

// RemSleepHours is REM sleep in hours
func (s *SleepStageSummary) RemSleepHours() float64 {
	return milliToHours(s.TotalRemSleepTimeMilli)
}

// LightSleepHours is light sleep in hours
func (s *SleepStageSummary) LightSleepHours() float64 {
	return milliToHours(s.TotalLightSleepTimeMilli)
}

func milliToHours(milli int64) float64 {
	return float64(milli) / (1000 * 60 * 60)
}

// SleepNeeded breaks down how much sleep the user needed
type SleepNeeded struct {
	BaselineMilli             int64 `json:"baseline_milli"`
	NeedFromSleepDebtMilli    int64 `json:"need_from_sleep_debt_milli"`
	NeedFromRecentStrainMilli int64 `json:"need_from_recent_strain_milli"`
	NeedFromRecentNapMilli    int64 `json:"need_from_recent_nap_milli"`
}

// SleepScore holds the scored portion of a sleep record
type SleepScore struct {
	StageSummary               SleepStageSummary `json:"stage_summary"`
	SleepNeeded                SleepNeeded       `json:"sleep_needed"`
	RespiratoryRate            *float64          `json:"respiratory_rate,omitempty"`
	SleepPerformancePercentage *float64          `json:"sleep_performance_percentage,omitempty"`
	SleepConsistencyPercentage *float64          `json:"sleep_consistency_percentage,omitempty"`
	SleepEfficiencyPercentage  *float64          `json:"sleep_efficiency_percentage,omitempty"`
}

// Sleep is a single WHOOP sleep record (main sleep or nap)
type Sleep struct {
	ID             string      `json:"id"`
	CycleID        *int64      `json:"cycle_id,omitempty"`
	UserID         int64       `json:"user_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	TimezoneOffset string      `json:"timezone_offset"`
	Nap            bool        `json:"nap"`
	ScoreState     string      `json:"score_state"`
	Score          *SleepScore `json:"score,omitempty"`
}

// Scored reports whether the record carries a usable score
func (s *Sleep) Scored() bool {
	return s != nil && s.ScoreState == ScoreStateScored && s.Score != nil
}

// CycleScore holds the scored portion of a physiological cycle (daily strain)
type CycleScore struct {
	Strain           float64 `json:"strain"`
	Kilojoule        float64 `json:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
}

// Calories converts the cycle's energy expenditure to kcal
func (s *CycleScore) Calories() int {
	return int(s.Kilojoule / kilojoulesPerKcal)
}

// Cycle is a single WHOOP physiological cycle record
type Cycle struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Start          time.Time   `json:"start"`
	End            *time.Time  `json:"end,omitempty"` // nil while the cycle is still open
	TimezoneOffset string      `json:"timezone_offset"`
	ScoreState     string      `json:"score_state"`
	Score          *CycleScore `json:"score,omitempty"`
}

// Scored reports whether the record carries a usable score
func (c *Cycle) Scored() bool {
	return c != nil && c.ScoreState == ScoreStateScored && c.Score != nil
}

// ZoneDurations is the time spent in each heart-rate zone, in milliseconds
type ZoneDurations struct {
	ZoneZeroMilli  int64 `json:"zone_zero_milli"`
	ZoneOneMilli   int64 `json:"zone_one_milli"`
	ZoneTwoMilli   int64 `json:"zone_two_milli"`
	ZoneThreeMilli int64 `json:"zone_three_milli"`
	ZoneFourMilli  int64 `json:"zone_four_milli"`
	ZoneFiveMilli  int64 `json:"zone_five_milli"`
}

// ZoneMinutes returns the time spent in zone (0-5) in minutes
func (z *ZoneDurations) ZoneMinutes(zone int) float64 {
	milli := [6]int64{
		z.ZoneZeroMilli, z.ZoneOneMilli, z.ZoneTwoMilli,
		z.ZoneThreeMilli, z.ZoneFourMilli, z.ZoneFiveMilli,
	}
	if zone < 0 || zone > 5 {
		return 0
	}
	return float64(milli[zone]) / (1000 * 60)
}

// WorkoutScore holds the scored portion of a workout record
type WorkoutScore struct {
	Strain            float64       `json:"strain"`
	AverageHeartRate  int           `json:"average_heart_rate"`
	MaxHeartRate      int           `json:"max_heart_rate"`
	Kilojoule         float64       `json:"kilojoule"`
	DistanceMeter     *float64      `json:"distance_meter,omitempty"`
	AltitudeGainMeter *float64      `json:"altitude_gain_meter,omitempty"`
	PercentRecorded   *float64      `json:"percent_recorded,omitempty"`
	ZoneDurations     ZoneDurations `json:"zone_duration"`
}

// Calories converts the workout's energy expenditure to kcal
func (s *WorkoutScore) Calories() int {
	return int(s.Kilojoule / kilojoulesPerKcal)
}

// DistanceMiles converts the recorded distance to miles, 0 when absent
func (s *WorkoutScore) DistanceMiles() float64 {
	if s.DistanceMeter == nil {
		return 0
	}
	return *s.DistanceMeter / metersPerMile
}

// Workout is a single WHOOP workout record
type Workout struct {
	ID             string        `json:"id"`
	UserID         int64         `json:"user_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	TimezoneOffset string        `json:"timezone_offset"`
	SportName      string        `json:"sport_name"`
	ScoreState     string        `json:"score_state"`
	Score          *WorkoutScore `json:"score,omitempty"`
}

// Scored reports whether the record carries a usable score
func (w *Workout) Scored() bool {
	return w != nil && w.ScoreState == ScoreStateScored && w.Score != nil
}

// DurationMinutes is the workout length in minutes
func (w *Workout) DurationMinutes() float64 {
	return w.End.Sub(w.Start).Minutes()
}
