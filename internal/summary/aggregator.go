// Package summary composes WHOOP API calls into the shapes the MCP tools
// return: a single-day composite summary, bounded sleep/recovery trends
// with simple derived statistics, and a recent-workout listing.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"whoopmcp/internal/whoop"
)

const (
	// DefaultMaxTrendDays is the widest trend window the provider serves
	// through pagination.
	DefaultMaxTrendDays = 30

	// DefaultMaxWorkouts matches the provider's per-page record ceiling.
	DefaultMaxWorkouts = 25
)

// Client is the slice of the WHOOP API client the aggregator needs.
// Narrowing it to an interface keeps the aggregator testable without HTTP.
type Client interface {
	TodayRecovery(ctx context.Context) (*whoop.Recovery, error)
	LastSleep(ctx context.Context) (*whoop.Sleep, error)
	GetRecovery(ctx context.Context, limit int) ([]whoop.Recovery, error)
	GetSleep(ctx context.Context, limit int) ([]whoop.Sleep, error)
	GetCycles(ctx context.Context, limit int) ([]whoop.Cycle, error)
	GetWorkouts(ctx context.Context, limit int) ([]whoop.Workout, error)
}

// Service is the aggregator's exported surface, one method per tool
type Service interface {
	TodaySummary(ctx context.Context) (*DailySummary, error)
	SleepTrend(ctx context.Context, days int) (*SleepTrendResult, error)
	RecoveryTrend(ctx context.Context, days int) (*RecoveryTrendResult, error)
	RecentWorkouts(ctx context.Context, limit int) ([]WorkoutSample, error)
}

// Config bounds the windows the aggregator accepts
type Config struct {
	MaxTrendDays int
	MaxWorkouts  int
}

// Aggregator implements Service on top of a WHOOP API client
type Aggregator struct {
	client Client
	config Config
	logger *slog.Logger
}

// New creates a new Aggregator
func New(client Client, config Config, logger *slog.Logger) *Aggregator {
	if config.MaxTrendDays <= 0 {
		config.MaxTrendDays = DefaultMaxTrendDays
	}
	if config.MaxWorkouts <= 0 {
		config.MaxWorkouts = DefaultMaxWorkouts
	}
	return &Aggregator{
		client: client,
		config: config,
		logger: logger,
	}
}

var _ Service = (*Aggregator)(nil)

// TodaySummary merges today's recovery, last night's sleep, and the current
// cycle's strain into one payload. A source that is merely unavailable
// (sleep not yet synced, endpoint down) yields a nil section instead of
// failing the whole call; authorization and rate-limit failures propagate
// because the user has to act on them.
func (a *Aggregator) TodaySummary(ctx context.Context) (*DailySummary, error) {
	summary := &DailySummary{}

	recovery, err := a.client.TodayRecovery(ctx)
	if err != nil {
		if !tolerable(err) {
			return nil, err
		}
		a.logger.Warn("recovery unavailable for today summary", "error", err)
	} else if recovery != nil {
		sample := recoverySample(recovery)
		summary.Recovery = &sample
		summary.Date = recovery.CreatedAt.Format("2006-01-02")
	}

	sleep, err := a.client.LastSleep(ctx)
	if err != nil {
		if !tolerable(err) {
			return nil, err
		}
		a.logger.Warn("sleep unavailable for today summary", "error", err)
	} else if sleep != nil {
		sample := sleepSample(sleep)
		summary.Sleep = &sample
		if summary.Date == "" {
			summary.Date = sleep.End.Format("2006-01-02")
		}
	}

	cycles, err := a.client.GetCycles(ctx, 1)
	if err != nil {
		if !tolerable(err) {
			return nil, err
		}
		a.logger.Warn("strain unavailable for today summary", "error", err)
	} else if len(cycles) > 0 {
		sample := strainSample(&cycles[0])
		summary.Strain = &sample
		if summary.Date == "" {
			summary.Date = cycles[0].Start.Format("2006-01-02")
		}
	}

	return summary, nil
}

// SleepTrend returns the last days nights of main sleep, ascending by
// date, with mean duration/performance and the latest night's delta vs.
// the mean. Validation happens before any network call.
func (a *Aggregator) SleepTrend(ctx context.Context, days int) (*SleepTrendResult, error) {
	if days < 1 || days > a.config.MaxTrendDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d, got %d",
			whoop.ErrInvalidRange, a.config.MaxTrendDays, days)
	}

	records, err := a.client.GetSleep(ctx, days)
	if err != nil {
		return nil, err
	}

	result := &SleepTrendResult{Days: days}
	for i := range records {
		if records[i].Nap {
			continue
		}
		result.Samples = append(result.Samples, sleepSample(&records[i]))
	}
	sort.Slice(result.Samples, func(i, j int) bool {
		return result.Samples[i].Date < result.Samples[j].Date
	})

	var hours, performance []float64
	for _, s := range result.Samples {
		if s.TotalSleepHours == nil {
			continue
		}
		hours = append(hours, *s.TotalSleepHours)
		if s.PerformancePct != nil {
			performance = append(performance, *s.PerformancePct)
		}
	}
	if len(hours) > 0 {
		result.MeanSleepHours = mean(hours)
		result.LatestVsMeanHours = hours[len(hours)-1] - result.MeanSleepHours
	}
	if len(performance) > 0 {
		result.MeanPerformancePct = mean(performance)
	}

	return result, nil
}

// RecoveryTrend returns the last days recovery scores, ascending by date,
// with mean score/HRV and the latest day's delta vs. the mean score.
func (a *Aggregator) RecoveryTrend(ctx context.Context, days int) (*RecoveryTrendResult, error) {
	if days < 1 || days > a.config.MaxTrendDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d, got %d",
			whoop.ErrInvalidRange, a.config.MaxTrendDays, days)
	}

	records, err := a.client.GetRecovery(ctx, days)
	if err != nil {
		return nil, err
	}

	result := &RecoveryTrendResult{Days: days}
	for i := range records {
		result.Samples = append(result.Samples, recoverySample(&records[i]))
	}
	sort.Slice(result.Samples, func(i, j int) bool {
		return result.Samples[i].Date < result.Samples[j].Date
	})

	var scores, hrvs []float64
	for _, s := range result.Samples {
		if s.Score == nil {
			continue
		}
		scores = append(scores, *s.Score)
		if s.HRVMilli != nil {
			hrvs = append(hrvs, *s.HRVMilli)
		}
	}
	if len(scores) > 0 {
		result.MeanScore = mean(scores)
		result.LatestVsMeanScore = scores[len(scores)-1] - result.MeanScore
	}
	if len(hrvs) > 0 {
		result.MeanHRVMilli = mean(hrvs)
	}

	return result, nil
}

// RecentWorkouts returns up to limit workouts shaped into WorkoutSample.
// Upstream order is preserved: the provider's definition of "recent" is
// authoritative.
func (a *Aggregator) RecentWorkouts(ctx context.Context, limit int) ([]WorkoutSample, error) {
	if limit < 1 || limit > a.config.MaxWorkouts {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d",
			whoop.ErrInvalidLimit, a.config.MaxWorkouts, limit)
	}

	records, err := a.client.GetWorkouts(ctx, limit)
	if err != nil {
		return nil, err
	}

	samples := make([]WorkoutSample, 0, len(records))
	for i := range records {
		samples = append(samples, workoutSample(&records[i]))
	}
	return samples, nil
}

// tolerable reports whether a per-source failure should degrade the summary
// to a partial result instead of failing it.
func tolerable(err error) bool {
	return errors.Is(err, whoop.ErrNoData) ||
		errors.Is(err, whoop.ErrUpstreamUnavailable) ||
		errors.Is(err, whoop.ErrUpstreamTimeout)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
