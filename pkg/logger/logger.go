package logger

import (
	"context"
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
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
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

// WithSession adds a session token to logger context
func (l *Logger) WithSession(token string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_token", token)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHoldCreated logs when a seat hold is placed and its draft persisted
func (l *Logger) LogHoldCreated(ctx context.Context, draftID, sessionToken string, seatCount int) {
	l.Logger.InfoContext(ctx,
		"Hold Created",
		slog.String("draft_id", draftID),
		slog.String("session_token", sessionToken),
		slog.Int("seat_count", seatCount),
	)
}

// LogSessionReleased logs when the reconciler finishes cleaning up a session
func (l *Logger) LogSessionReleased(ctx context.Context, sessionToken string, seatCount int) {
	l.Logger.InfoContext(ctx,
		"Session Released",
		slog.String("session_token", sessionToken),
		slog.Int("seats_released", seatCount),
	)
}

// LogBookingFinalized logs when a draft is promoted into a booking
func (l *Logger) LogBookingFinalized(ctx context.Context, bookingID, draftID string) {
	l.Logger.InfoContext(ctx,
		"Booking Finalized",
		slog.String("booking_id", bookingID),
		slog.String("draft_id", draftID),
	)
}

// LogSeatChanged logs an admin seat or trip override
func (l *Logger) LogSeatChanged(ctx context.Context, bookingID string, tripID, seatID int64) {
	l.Logger.InfoContext(ctx,
		"Seat Changed",
		slog.String("booking_id", bookingID),
		slog.Int64("trip_id", tripID),
		slog.Int64("seat_id", seatID),
	)
}

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

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
