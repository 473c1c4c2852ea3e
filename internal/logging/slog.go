package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// overridable in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// instrumentationScope names the otelslog logger.
const instrumentationScope = "github.com/OCAP2/handoff"

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// contextProvider adds per-run attributes (run id etc.) to every record
	contextProvider ContextProvider
}

// ManagerOption configures a SlogManager.
type ManagerOption func(*SlogManager)

// WithContextProvider attaches dynamic attributes to every record the manager logs.
func WithContextProvider(p ContextProvider) ManagerOption {
	return func(m *SlogManager) {
		m.contextProvider = p
	}
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager(opts ...ManagerOption) *SlogManager {
	m := &SlogManager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with file and optional OTel output.
// When file is nil records go to stdout instead. If provider is nil, OTel
// logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(instrumentationScope, otelslog.WithLoggerProvider(provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if m.contextProvider != nil {
		handler = NewContextHandler(handler, m.contextProvider)
	}

	m.logger = slog.New(handler)
	m.logger.Debug("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}
