package mutation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qiming97/iinterview/internal/timers"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}

func TestWindow_OpensAndCloses(t *testing.T) {
	var closed atomic.Int32
	w := NewWindow(30*time.Millisecond, timers.NewRegistry(), nopLogger{},
		func() { closed.Add(1) })

	require.False(t, w.Active())
	require.True(t, w.ArmedAt().IsZero())

	w.Arm()
	require.True(t, w.Active())
	require.False(t, w.ArmedAt().IsZero())

	require.Eventually(t, func() bool {
		return !w.Active()
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), closed.Load(), "onClose fires once per window")
}

func TestWindow_RearmExtends(t *testing.T) {
	var closed atomic.Int32
	w := NewWindow(50*time.Millisecond, timers.NewRegistry(), nopLogger{},
		func() { closed.Add(1) })

	w.Arm()
	time.Sleep(30 * time.Millisecond)
	w.Arm()
	time.Sleep(30 * time.Millisecond)

	// 60ms total, but the second arm reset the 50ms quiet period.
	require.True(t, w.Active())
	require.Zero(t, closed.Load())

	require.Eventually(t, func() bool {
		return closed.Load() == 1
	}, time.Second, 5*time.Millisecond, "window closes after quiet period with no re-arm")
}
