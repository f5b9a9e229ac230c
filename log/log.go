// Package log provides the leveled, structured logger used across the
// registry. It wraps zerolog with package-level helpers so callers never
// carry a logger instance around.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	log zerolog.Logger

	// panicOnInvalidChars makes the logger panic when a line carries invalid
	// UTF-8, which usually means raw bytes were formatted with %s.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is used as output when Init is called with
	// logTestWriterName, so benchmarks and tests can capture or discard logs.
	logTestWriter     io.Writer = os.Stdout
	logTestWriterName           = "log_test_writer"

	levelNames = map[string]zerolog.Level{
		LogLevelDebug: zerolog.DebugLevel,
		LogLevelInfo:  zerolog.InfoLevel,
		LogLevelWarn:  zerolog.WarnLevel,
		LogLevelError: zerolog.ErrorLevel,
	}
)

func init() {
	// Allow overriding the default log level via $LOG_LEVEL, so that the
	// environment variable can be set when running tests.
	level := LogLevelError
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		level = l
	}
	Init(level, "stderr", nil)
}

// invalidCharChecker inspects the JSON encoded line before it reaches the
// console writer. zerolog escapes invalid UTF-8 as \ufffd.
type invalidCharChecker struct{}

func (*invalidCharChecker) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte(`\ufffd`)) {
		panic(fmt.Sprintf("log line with invalid chars: %q", p))
	}
	return len(p), nil
}

// errorLevelWriter forwards only error and fatal entries to out.
type errorLevelWriter struct {
	out io.Writer
}

func (w *errorLevelWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.out.Write(p)
}

// Init configures the global logger. The level must be one of debug, info,
// warn or error; output can be stdout, stderr or a file path. If errorOutput
// is not nil, error entries are also written there.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
		FormatTimestamp: func(i any) string {
			t, ok := i.(string)
			if !ok {
				return fmt.Sprint(i)
			}
			ts, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return t
			}
			return ts.Format("2006-01-02T15:04:05.000Z07:00")
		},
	}

	outputs := []io.Writer{out}
	if errorOutput != nil {
		outputs = append(outputs, &errorLevelWriter{out: errorOutput})
	}
	if panicOnInvalidChars {
		outputs = append(outputs, &invalidCharChecker{})
	}
	if len(outputs) > 1 {
		out = zerolog.MultiLevelWriter(outputs...)
	}

	// The caller is the function that called log.Info, not this package.
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return path.Base(path.Dir(file)) + "/" + path.Base(file) + ":" + strconv.Itoa(line)
	}
	log = zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	SetLevel(level)
	log.Debug().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// SetLevel sets the global log level. Unknown names fall back to info.
func SetLevel(level string) {
	l, ok := levelNames[strings.ToLower(level)]
	if !ok {
		l = zerolog.InfoLevel
	}
	log = log.Level(l)
}

// Level returns the current log level name.
func Level() string {
	switch log.GetLevel() {
	case zerolog.DebugLevel:
		return LogLevelDebug
	case zerolog.InfoLevel:
		return LogLevelInfo
	case zerolog.WarnLevel:
		return LogLevelWarn
	case zerolog.ErrorLevel:
		return LogLevelError
	default:
		return log.GetLevel().String()
	}
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

func Debug(args ...any) {
	log.Debug().Msg(fmt.Sprint(args...))
}

func Info(args ...any) {
	log.Info().Msg(fmt.Sprint(args...))
}

func Warn(args ...any) {
	log.Warn().Msg(fmt.Sprint(args...))
}

func Error(args ...any) {
	log.Error().Msg(fmt.Sprint(args...))
}

// Fatal logs the arguments and the stack trace, then exits with status 1.
func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...) + "\n" + string(debug.Stack()))
}

func Debugf(template string, args ...any) {
	log.Debug().Msgf(template, args...)
}

func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	log.Warn().Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	Fatal(fmt.Sprintf(template, args...))
}

// Debugw logs a message with key/value pairs, e.g.
// Debugw("voter registered", "identity", id, "commitment", c).
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

func Errorw(err error, msg string) {
	log.Error().Err(err).Msg(msg)
}
