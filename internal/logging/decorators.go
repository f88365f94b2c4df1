package logging

import (
	"context"
	"log/slog"
	"time"

	"whoopmcp/internal/summary"
)

// AggregatorLogger wraps a summary.Service and logs all method calls.
// Token material never reaches these log lines; only operation metadata
// and durations do.
type AggregatorLogger struct {
	service summary.Service
	logger  *slog.Logger
}

// NewAggregatorLogger creates a new logging decorator for the aggregator
func NewAggregatorLogger(service summary.Service, logger *slog.Logger) summary.Service {
	return &AggregatorLogger{
		service: service,
		logger:  logger.With("interface", "Aggregator"),
	}
}

func (l *AggregatorLogger) TodaySummary(ctx context.Context) (*summary.DailySummary, error) {
	start := time.Now()
	l.logger.Info("TodaySummary called")

	result, err := l.service.TodaySummary(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("TodaySummary failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("TodaySummary completed",
		"date", result.Date,
		"has_recovery", result.Recovery != nil,
		"has_sleep", result.Sleep != nil,
		"has_strain", result.Strain != nil,
		"duration", duration)

	return result, nil
}

func (l *AggregatorLogger) SleepTrend(ctx context.Context, days int) (*summary.SleepTrendResult, error) {
	start := time.Now()
	l.logger.Info("SleepTrend called", "days", days)

	result, err := l.service.SleepTrend(ctx, days)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("SleepTrend failed",
			"days", days,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("SleepTrend completed",
		"days", days,
		"samples", len(result.Samples),
		"duration", duration)

	return result, nil
}

func (l *AggregatorLogger) RecoveryTrend(ctx context.Context, days int) (*summary.RecoveryTrendResult, error) {
	start := time.Now()
	l.logger.Info("RecoveryTrend called", "days", days)

	result, err := l.service.RecoveryTrend(ctx, days)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("RecoveryTrend failed",
			"days", days,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("RecoveryTrend completed",
		"days", days,
		"samples", len(result.Samples),
		"duration", duration)

	return result, nil
}

func (l *AggregatorLogger) RecentWorkouts(ctx context.Context, limit int) ([]summary.WorkoutSample, error) {
	start := time.Now()
	l.logger.Info("RecentWorkouts called", "limit", limit)

	result, err := l.service.RecentWorkouts(ctx, limit)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("RecentWorkouts failed",
			"limit", limit,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("RecentWorkouts completed",
		"limit", limit,
		"workouts", len(result),
		"duration", duration)

	return result, nil
}
