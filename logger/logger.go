package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with a component name.
type Logger struct {
	logger    zerolog.Logger
	component string
}

// New creates a logger from configuration writing to the configured output.
func New(cfg *Config) *Logger {
	return NewWithWriter(cfg, outputWriter(cfg.Output))
}

// NewWithWriter creates a logger from configuration writing to w.
func NewWithWriter(cfg *Config, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.WarnLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: cfg.NoColor})
	} else {
		zl = zerolog.New(w)
	}
	zl = zl.Level(level)

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	return &Logger{logger: zl}
}

// NewTest creates a logger that writes through t.Log, so output is attached
// to the test that produced it.
func NewTest(t zerolog.TestingLog, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.NewTestWriter(t)).Level(lvl)
	return &Logger{logger: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return New(cfg)
}

// NewFromEnv creates a logger configured from ORMTEST_LOG_* environment variables.
func NewFromEnv() *Logger {
	cfg := &Config{
		Level:   getEnvOrDefault("ORMTEST_LOG_LEVEL", "warn"),
		Format:  getEnvOrDefault("ORMTEST_LOG_FORMAT", "console"),
		Output:  getEnvOrDefault("ORMTEST_LOG_OUTPUT", "stderr"),
		NoColor: getEnvOrDefault("ORMTEST_LOG_NO_COLOR", "false") == "true",
	}
	return New(cfg)
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:    l.logger.With().Str(FieldComponent, name).Logger(),
		component: name,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), component: l.component}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:    l.logger.With().Err(err).Logger(),
		component: l.component,
	}
}

// Component returns the component name the logger is tagged with.
func (l *Logger) Component() string {
	return l.component
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// --- Global logger ---

var globalLogger *Logger

// Init replaces the global logger with one built from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	globalLogger = New(&cfg)
}

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating one from the environment if needed.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewFromEnv()
	}
	return globalLogger
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

