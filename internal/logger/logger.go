package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Options controls where and how log lines are written.
type Options struct {
	Level    string    // debug, info, warn, error
	Format   string    // text or json
	Output   string    // stdout, stderr or file
	FilePath string    // Used when Output is "file"
	Writer   io.Writer // Overrides Output when set
}

var (
	defaultLogger zerolog.Logger
	once          sync.Once
	mu            sync.RWMutex
)

// Init initializes the default logger writing human-readable lines to stderr.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		setLogger(build(Options{Level: "info", Format: "text", Output: "stderr"}))
	})
}

// Configure replaces the default logger, typically after config has loaded.
func Configure(opts Options) {
	once.Do(func() {})
	setLogger(build(opts))
}

func setLogger(l zerolog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func build(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer
	switch {
	case opts.Writer != nil:
		out = opts.Writer
	case opts.Output == "stdout":
		out = os.Stdout
	case opts.Output == "file" && opts.FilePath != "":
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot create log directory: %v\n", err)
		}
		out = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     7,
			Compress:   true,
		}
	default:
		out = os.Stderr
	}

	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: opts.Writer != nil || opts.Output == "file"}
	}

	return zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() *zerolog.Logger {
	Init()
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	return &l
}

// With returns a child logger carrying the given key/value pairs.
func With(args ...any) zerolog.Logger {
	ctx := Get().With()
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ctx = ctx.Interface("!BADKEY", args[i])
			break
		}
		ctx = ctx.Interface(fmt.Sprint(args[i]), args[i+1])
	}
	return ctx.Logger()
}

// fields attaches slog-style key/value pairs to an event.
func fields(ev *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return ev.Interface("!BADKEY", args[i])
		}
		key := fmt.Sprint(args[i])
		switch v := args[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Str(key, v.String())
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	fields(Get().Info(), args).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	fields(Get().Warn(), args).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	fields(Get().Error().Err(err), args).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	fields(Get().Debug(), args).Msg(msg)
}
