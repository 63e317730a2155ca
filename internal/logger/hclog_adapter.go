package logger

import (
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter adapts DairosLogger to the hashicorp/go-hclog.Logger interface
// so go-plugin client and plugin stderr output ends up in the host log.
type HCLogAdapter struct {
	logger *DairosLogger
	name   string
	args   []interface{}
}

// NewHCLogAdapter creates a new HCLog adapter wrapping the default logger.
func NewHCLogAdapter() hclog.Logger {
	return &HCLogAdapter{
		logger: Default(),
		name:   "plugin",
	}
}

func (h *HCLogAdapter) attrs(args []interface{}) []any {
	pairs := genericPairs(append(append([]interface{}{}, h.args...), args...)...)
	return append([]any{slog.String("logger", h.name)}, pairs...)
}

// Log implementation
func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.Debug(msg, args...)
	case hclog.Info, hclog.NoLevel:
		h.Info(msg, args...)
	case hclog.Warn:
		h.Warn(msg, args...)
	case hclog.Error:
		h.Error(msg, args...)
	}
}

// Trace logs at debug level, slog has no trace
func (h *HCLogAdapter) Trace(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Debug(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Info(msg string, args ...interface{}) {
	h.logger.Info(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Warn(msg string, args ...interface{}) {
	h.logger.Warn(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Error(msg string, args ...interface{}) {
	h.logger.Error(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) IsTrace() bool {
	return false
}

func (h *HCLogAdapter) IsDebug() bool {
	return GetLogLevel() <= slog.LevelDebug
}

func (h *HCLogAdapter) IsInfo() bool {
	return GetLogLevel() <= slog.LevelInfo
}

func (h *HCLogAdapter) IsWarn() bool {
	return GetLogLevel() <= slog.LevelWarn
}

func (h *HCLogAdapter) IsError() bool {
	return true
}

func (h *HCLogAdapter) ImpliedArgs() []interface{} {
	return h.args
}

// With creates a new logger with additional context
func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	return &HCLogAdapter{
		logger: h.logger,
		name:   h.name,
		args:   append(append([]interface{}{}, h.args...), args...),
	}
}

func (h *HCLogAdapter) Name() string {
	return h.name
}

// Named creates a new logger with a name
func (h *HCLogAdapter) Named(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: h.logger,
		name:   h.name + "." + name,
		args:   h.args,
	}
}

// ResetNamed creates a new logger with the given name, clearing parent names
func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: h.logger,
		name:   name,
		args:   h.args,
	}
}

// SetLevel is a no-op, the level is owned by SetLogLevel.
func (h *HCLogAdapter) SetLevel(level hclog.Level) {}

func (h *HCLogAdapter) GetLevel() hclog.Level {
	switch l := GetLogLevel(); {
	case l <= slog.LevelDebug:
		return hclog.Debug
	case l <= slog.LevelInfo:
		return hclog.Info
	case l <= slog.LevelWarn:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return slog.NewLogLogger(h.logger.Slog().Handler(), slog.LevelInfo)
}

func (h *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return io.Discard
}
