package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var dairosLogger atomic.Pointer[DairosLogger]

var level = new(slog.LevelVar)

func init() {
	dairosLogger.Store(NewDairosLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))))
}

// DairosLogger wraps slog and additionally satisfies badger.Logger.
type DairosLogger struct {
	slogger *slog.Logger
}

func NewDairosLogger(l *slog.Logger) *DairosLogger {
	return &DairosLogger{
		slogger: l,
	}
}

func Default() *DairosLogger {
	return dairosLogger.Load()
}

// SetDefault replaces the package logger, mostly for tests.
func SetDefault(l *DairosLogger) {
	dairosLogger.Store(l)
}

func SetLogLevel(l slog.Level) {
	level.Set(l)
}

func GetLogLevel() slog.Level {
	return level.Level()
}

// Slog returns the underlying *slog.Logger, e.g. to hand to a dai.Pipeline.
func (l *DairosLogger) Slog() *slog.Logger {
	return l.slogger
}

// With returns a logger carrying the given attributes.
func (l *DairosLogger) With(args ...any) *DairosLogger {
	return &DairosLogger{slogger: l.slogger.With(args...)}
}

// slog wrapper

func Debug(msg string, args ...any) {
	dairosLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	dairosLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	dairosLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	dairosLogger.Load().Error(msg, args...)
}

func (l *DairosLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *DairosLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *DairosLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *DairosLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// badger.logger

func (l *DairosLogger) Errorf(format string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

func (l *DairosLogger) Warningf(format string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *DairosLogger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *DairosLogger) Debugf(format string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

func genericPairs(v ...interface{}) []any {
	pairs := make([]any, 0, len(v)/2)
	for i := 0; i < len(v)-1; i += 2 {
		key, ok := v[i].(string)
		if !ok {
			key = fmt.Sprintf("non_string_key_%d", i)
		}
		pairs = append(pairs, slog.Any(key, v[i+1]))
	}
	return pairs
}
