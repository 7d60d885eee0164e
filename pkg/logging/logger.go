package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace is below DEBUG and only used for very chatty diagnostics.
const LevelTrace = slog.LevelDebug - 4

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stderr
	level            = new(slog.LevelVar)
	logger *slog.Logger
)

func init() {
	// Console output stays on stderr so reports on stdout remain clean
	level.Set(slog.LevelInfo)
	logger = slog.New(NewCompactHandler(out, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLevel changes the logging level
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput redirects log output, keeping the current format
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if _, isJSON := logger.Handler().(*slog.JSONHandler); isJSON {
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
		return
	}
	logger = slog.New(NewCompactHandler(out, &slog.HandlerOptions{Level: level}))
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(l slog.Level) {
	level.Set(l)
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to a slog level. Unknown names yield ok=false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// LevelFromVerbosity resolves the effective level from an explicit level name
// and a -v count. An explicit, valid name always wins. Without flags only
// warnings and errors are shown.
func LevelFromVerbosity(name string, count int) slog.Level {
	if l, ok := ParseLevel(name); ok {
		return l
	}
	switch {
	case count >= 3:
		return LevelTrace
	case count == 2:
		return slog.LevelDebug
	case count == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Helper function to add request ID to log attributes if present
func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Logger is a component-scoped logger. It always writes through the current
// package logger, so level and format changes apply to existing instances.
type Logger struct {
	component string
}

// New returns a logger that tags every record with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) args(args []any) []any {
	return append([]any{"component", l.component}, args...)
}

// Trace logs at TRACE level
func (l *Logger) Trace(msg string, args ...any) {
	current().Log(context.Background(), LevelTrace, msg, l.args(args)...)
}

// Debug logs at DEBUG level
func (l *Logger) Debug(msg string, args ...any) {
	current().Debug(msg, l.args(args)...)
}

// Info logs at INFO level
func (l *Logger) Info(msg string, args ...any) {
	current().Info(msg, l.args(args)...)
}

// Warn logs at WARN level
func (l *Logger) Warn(msg string, args ...any) {
	current().Warn(msg, l.args(args)...)
}

// Error logs at ERROR level
func (l *Logger) Error(msg string, args ...any) {
	current().Error(msg, l.args(args)...)
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	current().Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	current().InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs at ERROR level (logical bugs that shouldn't happen)
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}
