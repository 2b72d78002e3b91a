// Package obslog is qpilot's structured logger, grounded on
// jhkimqd-chaos-utils/pkg/reporting/logger.go's zerolog wrapper
// (level/format config, WithField/WithFields child loggers).
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors the teacher's LogLevel.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format mirrors the teacher's LogFormat.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config selects level/format/output for a Logger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// Logger wraps zerolog with the field vocabulary qpilot's components use
// (job_id, deployment_id, provider, device).
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var out io.Writer = cfg.Output
	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339, NoColor: false}
	}
	z := zerolog.New(out).With().Timestamp().Logger().Level(level(cfg.Level))
	return &Logger{z: z}
}

func level(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.z.Warn().Msg(msg) }

// Error logs msg, attaching err if non-nil.
func (l *Logger) Error(msg string, err error) {
	ev := l.z.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}

// WithJob scopes a child logger to a job, the identifier most qpilot log
// lines are keyed by (spec.md §7 "a job's failure is logged with its id").
func (l *Logger) WithJob(jobID string) *Logger {
	return &Logger{z: l.z.With().Str("job_id", jobID).Logger()}
}

// WithField adds one structured field to a child logger.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{z: l.z.With().Interface(key, value).Logger()}
}

// Zerolog exposes the underlying logger for packages (e.g. gorilla/mux
// middleware) that want the raw zerolog API.
func (l *Logger) Zerolog() zerolog.Logger { return l.z }
