// Package ports defines the interfaces between the playback core and its
// collaborators: media sessions, displays, schedulers, logging and I/O.
package ports

// LogLevel orders log messages from chattiest to silent.
type LogLevel int

const (
	// LevelDebug covers worker, clock and session internals: commands,
	// seeks, dropped frames and session open and close.
	LevelDebug LogLevel = iota
	// LevelInfo covers player events such as a parsed source or the end of
	// playback, and CLI progress.
	LevelInfo
	// LevelWarn covers failures playback survives, like an unopenable
	// source or a frame dump that could not be written.
	LevelWarn
	// LevelError covers decode and scale failures that end a session.
	LevelError
	// LevelQuiet suppresses all output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger receives printf-style messages. Messages are go-l10n keys, so
// a translated catalogue may replace the format before args are applied.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger whose messages carry a "[component]"
	// prefix, e.g. "worker" or "clock".
	WithComponent(component string) Logger
}
