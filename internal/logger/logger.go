package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the default logger.
type Options struct {
	Level  string    // trace, debug, info, warn, error
	Format string    // json or console
	Output io.Writer // defaults to os.Stderr
}

var (
	defaultLogger zerolog.Logger
	once          sync.Once
	mu            sync.RWMutex
)

// Init initializes the default logger with JSON output on os.Stderr.
// It ensures that the logger is initialized only once; use Configure to change it later.
func Init() {
	once.Do(func() {
		configure(Options{Level: "info", Format: "json"})
	})
}

// Configure (re)builds the default logger from opts.
func Configure(opts Options) {
	once.Do(func() {})
	configure(opts)
}

func configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(opts.Format, "console") || strings.EqualFold(opts.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp().Logger()

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the initialized default logger.
func Get() *zerolog.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	return &l
}

// With returns a child logger carrying the given key/value pairs.
func With(args ...any) zerolog.Logger {
	return Get().With().Fields(args).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	Get().Info().Fields(args).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Get().Warn().Fields(args).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	Get().Error().Err(err).Fields(args).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Get().Debug().Fields(args).Msg(msg)
}
