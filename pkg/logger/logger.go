package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// NewWithWriter creates a JSON logger writing to w, used by tests and tools
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewDiscard returns a logger that drops everything
func NewDiscard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Waitlist logging methods

// LogOfferCreated logs when an offer is sent to a family
func (l *Logger) LogOfferCreated(ctx context.Context, offerID, entryID string, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Offer Created",
		slog.String("offer_id", offerID),
		slog.String("entry_id", entryID),
		slog.Time("expires_at", expiresAt),
	)
}

// LogOfferResponded logs a parent's answer to an offer
func (l *Logger) LogOfferResponded(ctx context.Context, offerID, response string) {
	l.Logger.InfoContext(ctx,
		"Offer Responded",
		slog.String("offer_id", offerID),
		slog.String("response", response),
	)
}

// LogCapacityReserved logs a successful reservation
func (l *Logger) LogCapacityReserved(ctx context.Context, scope, offerID string, slots, available int) {
	l.Logger.InfoContext(ctx,
		"Capacity Reserved",
		slog.String("scope", scope),
		slog.String("offer_id", offerID),
		slog.Int("slots", slots),
		slog.Int("available_after", available),
	)
}

// LogCampaignExecuted logs the outcome of a campaign round
func (l *Logger) LogCampaignExecuted(ctx context.Context, campaignID string, offersCreated, failures int, dryRun bool) {
	l.Logger.InfoContext(ctx,
		"Campaign Executed",
		slog.String("campaign_id", campaignID),
		slog.Int("offers_created", offersCreated),
		slog.Int("failures", failures),
		slog.Bool("dry_run", dryRun),
	)
}

// LogPositionsRecalculated logs a cohort recalculation
func (l *Logger) LogPositionsRecalculated(ctx context.Context, scope string, updated, significant int) {
	l.Logger.InfoContext(ctx,
		"Positions Recalculated",
		slog.String("scope", scope),
		slog.Int("updated", updated),
		slog.Int("significant", significant),
	)
}

// LogSweep logs a periodic job run
func (l *Logger) LogSweep(ctx context.Context, job string, processed int, duration time.Duration, err error) {
	if err != nil {
		l.Logger.ErrorContext(ctx,
			"Sweep Failed",
			slog.String("job", job),
			slog.Int("processed", processed),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Logger.InfoContext(ctx,
		"Sweep Completed",
		slog.String("job", job),
		slog.Int("processed", processed),
		slog.Duration("duration", duration),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}
