package restyutil

import (
	"context"
	"fmt"
	"log/slog"
)

// Logger hands resty's own messages to slog at debug level. The retry
// warnings resty emits per attempt only show up with debug logging, the
// final error is returned to the caller anyway.
type Logger struct {
	// slog.Default() when nil
	Logger *slog.Logger
}

func (l Logger) log(level string, format string, v ...any) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, v...), "source", "resty", "resty_level", level)
}

func (l Logger) Errorf(format string, v ...any) {
	l.log("error", format, v...)
}

func (l Logger) Warnf(format string, v ...any) {
	l.log("warn", format, v...)
}

func (l Logger) Debugf(format string, v ...any) {
	l.log("debug", format, v...)
}
