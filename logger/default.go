package logger

import "sync/atomic"

var defLogger atomic.Pointer[SlogLogger]

func init() {
	defLogger.Store(NewSlog(InfoLevel, Options{}))
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return defLogger.Load()
}

// SetDefault replaces the package default logger. Components created afterwards pick it up.
func SetDefault(l *SlogLogger) {
	if l != nil {
		defLogger.Store(l)
	}
}

func SetLevel(level Level) {
	defLogger.Load().SetLevel(level)
}

func With(keyValues ...any) Logger {
	return defLogger.Load().With(keyValues...)
}

func Debug(msg string, keysAndValues ...any) {
	defLogger.Load().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	defLogger.Load().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defLogger.Load().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defLogger.Load().Error(msg, keysAndValues...)
}
