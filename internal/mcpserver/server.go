// Package mcpserver exposes the aggregator as MCP tools over the official
// MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
//
// Four tools are registered:
//   - "get_today_summary"  — today's recovery, sleep, and strain in one call
//   - "get_sleep_trend"    — sleep duration and quality over the last N days
//   - "get_recovery_trend" — recovery and HRV patterns over the last N days
//   - "get_workouts"       — recent workouts with HR zones
//
// Each tool returns readable text alongside the JSON-serializable result as
// structured content, so the host can render either.
//
// User-actionable failures (missing authorization, rejected refresh token,
// rate limits, out-of-range arguments) render as readable tool errors; only
// unexpected failures propagate as protocol errors.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"whoopmcp/internal/summary"
	"whoopmcp/internal/whoop"
)

const serverVersion = "1.1.0"

// Server wires the aggregator into an MCP stdio server
type Server struct {
	server  *mcpsdk.Server
	service summary.Service
	logger  *slog.Logger
}

// trendArgs is the input for both trend tools
type trendArgs struct {
	Days int `json:"days,omitempty"`
}

// workoutArgs is the input for the workout tool
type workoutArgs struct {
	Limit int `json:"limit,omitempty"`
}

type emptyArgs struct{}

// New creates a Server with all four tools registered
func New(service summary.Service, logger *slog.Logger) *Server {
	s := &Server{
		server: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: "whoop-mcp", Version: serverVersion},
			nil,
		),
		service: service,
		logger:  logger,
	}

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "get_today_summary",
		Description: "Get today's complete WHOOP status: recovery, sleep, and strain in one call. " +
			"This is the recommended daily check-in tool.",
	}, s.handleTodaySummary)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "get_sleep_trend",
		Description: "Get sleep duration, efficiency, and performance for the last N days " +
			"(days: 1-30, default 7).",
	}, s.handleSleepTrend)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "get_recovery_trend",
		Description: "Get recovery scores and HRV for the last N days to identify patterns " +
			"(days: 1-30, default 7).",
	}, s.handleRecoveryTrend)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "get_workouts",
		Description: "Get recent workouts with sport type, strain, duration, calories, and " +
			"heart rate zones (limit: 1-25, default 5).",
	}, s.handleWorkouts)

	return s
}

// Run serves the MCP protocol on stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio", "version", serverVersion)
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) handleTodaySummary(ctx context.Context, req *mcpsdk.CallToolRequest, _ emptyArgs) (*mcpsdk.CallToolResult, any, error) {
	result, err := s.service.TodaySummary(ctx)
	if err != nil {
		return s.toolError(err)
	}
	return textResult(summary.FormatDailySummary(result)), result, nil
}

func (s *Server) handleSleepTrend(ctx context.Context, req *mcpsdk.CallToolRequest, args trendArgs) (*mcpsdk.CallToolResult, any, error) {
	days := args.Days
	if days == 0 {
		days = 7
	}
	result, err := s.service.SleepTrend(ctx, days)
	if err != nil {
		return s.toolError(err)
	}
	return textResult(summary.FormatSleepTrend(result)), result, nil
}

func (s *Server) handleRecoveryTrend(ctx context.Context, req *mcpsdk.CallToolRequest, args trendArgs) (*mcpsdk.CallToolResult, any, error) {
	days := args.Days
	if days == 0 {
		days = 7
	}
	result, err := s.service.RecoveryTrend(ctx, days)
	if err != nil {
		return s.toolError(err)
	}
	return textResult(summary.FormatRecoveryTrend(result)), result, nil
}

func (s *Server) handleWorkouts(ctx context.Context, req *mcpsdk.CallToolRequest, args workoutArgs) (*mcpsdk.CallToolResult, any, error) {
	limit := args.Limit
	if limit == 0 {
		limit = 5
	}
	result, err := s.service.RecentWorkouts(ctx, limit)
	if err != nil {
		return s.toolError(err)
	}
	return textResult(summary.FormatWorkouts(result)), result, nil
}

// toolError maps domain failures onto readable tool errors. The messages
// are surfaced verbatim to the end user, so they say what to do next.
func (s *Server) toolError(err error) (*mcpsdk.CallToolResult, any, error) {
	msg, known := ErrorMessage(err)
	if !known {
		// Unexpected failure: let the protocol carry it.
		return nil, nil, err
	}
	s.logger.Warn("tool call failed", "error", err)
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}, nil, nil
}

// ErrorMessage renders a known domain error as user-facing text. The
// second return value is false for errors outside the taxonomy.
func ErrorMessage(err error) (string, bool) {
	var rateErr *whoop.RateLimitError

	switch {
	case errors.Is(err, whoop.ErrNoTokens):
		return "Authentication error: no WHOOP authorization found. Run whoop-auth to connect your account.", true
	case errors.Is(err, whoop.ErrReauthorizationRequired):
		return "Authentication error: your WHOOP authorization has expired. Re-run whoop-auth to reconnect your account.", true
	case errors.As(err, &rateErr):
		if rateErr.RetryAfter > 0 {
			return fmt.Sprintf("WHOOP API rate limit exceeded. Try again in %s.", rateErr.RetryAfter), true
		}
		return "WHOOP API rate limit exceeded. Try again in a minute.", true
	case errors.Is(err, whoop.ErrUpstreamTimeout):
		return "WHOOP API did not respond in time. Try again shortly.", true
	case errors.Is(err, whoop.ErrUpstreamUnavailable):
		return "WHOOP API is currently unavailable. Try again later.", true
	case errors.Is(err, whoop.ErrNoData):
		return "No data available from WHOOP for this request.", true
	case errors.Is(err, whoop.ErrInvalidRange), errors.Is(err, whoop.ErrInvalidLimit):
		return fmt.Sprintf("Invalid argument: %v.", err), true
	}
	return "", false
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}
