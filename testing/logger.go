package testing

import (
	"testing"

	"github.com/qiming97/iinterview/types"
)

// NewTestLogger returns a Logger that routes coordinator log output through
// t.Logf, so session internals show up interleaved with the test's own output
// on failure or under -v.
func NewTestLogger(t *testing.T) types.Logger {
	return &testLogger{t: t}
}

type testLogger struct {
	t *testing.T
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) log(level, msg string, kv []any) {
	l.t.Helper()
	l.t.Logf("%s %s %v", level, msg, kv)
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

// Fatal fails the test immediately; a session that logs at this level inside
// a test is itself a defect.
func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Helper()
	l.t.Fatalf("FATAL %s %v", msg, keysAndValues)
}
