package log

import "context"

// Nop returns a logger that discards every record. Components fall back to it
// when no logger is injected.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)               {}
func (nopLogger) Info(string, ...any)                {}
func (nopLogger) Warn(string, ...any)                {}
func (nopLogger) Error(string, ...any)               {}
func (n nopLogger) With(...any) Logger               { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }
