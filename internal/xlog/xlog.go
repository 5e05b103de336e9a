// Package xlog is a thin, leveled logger wrapper (Logln/Logf), backed by
// logrus instead of a bare io.Writer so warnings raised by the repository
// manager and its state storage carry structured fields (specifier,
// package identity, ...).
package xlog

import (
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.FieldLogger with the call shapes the rest of this
// module uses: a plain line, a formatted line, and a warning used for the
// "recover locally and continue" error paths spec'd for storage/cache
// inconsistency.
type Logger struct {
	entry logrus.FieldLogger
}

// New returns a Logger writing through l, or a logrus.New() default if l is
// nil.
func New(l logrus.FieldLogger) *Logger {
	if l == nil {
		l = logrus.New()
	}
	return &Logger{entry: l}
}

// Logln logs a line at info level.
func (l *Logger) Logln(args ...interface{}) {
	l.entry.Infoln(args...)
}

// Logf logs a formatted string at info level.
func (l *Logger) Logf(f string, args ...interface{}) {
	l.entry.Infof(f, args...)
}

// Warnf logs a formatted warning, used for recoverable cache/storage
// inconsistency paths that continue after emitting a diagnostic.
func (l *Logger) Warnf(f string, args ...interface{}) {
	l.entry.Warnf(f, args...)
}

// With returns a Logger scoped with additional structured fields, e.g.
// l.With("specifier", spec.String()).
func (l *Logger) With(kv ...interface{}) *Logger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	return &Logger{entry: l.entry.WithFields(fields)}
}
