package timers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_ArmAndFire(t *testing.T) {
	r := NewRegistry()

	fired := make(chan struct{})
	r.Arm(TypingExpiry, "u1", 10*time.Millisecond, func() { close(fired) })

	require.True(t, r.Pending(TypingExpiry, "u1"))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	require.Eventually(t, func() bool {
		return !r.Pending(TypingExpiry, "u1")
	}, time.Second, 5*time.Millisecond, "fired timer must remove its entry")
}

func TestRegistry_ArmReplaces(t *testing.T) {
	r := NewRegistry()

	var count atomic.Int32
	for range 5 {
		r.Arm(TypingDebounce, "u1", 20*time.Millisecond, func() { count.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), count.Load(), "re-arming must replace, not stack")
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Bool
	r.Arm(LeaveDedup, "u1", 20*time.Millisecond, func() { fired.Store(true) })

	require.True(t, r.Cancel(LeaveDedup, "u1"))
	require.False(t, r.Cancel(LeaveDedup, "u1"), "second cancel finds nothing")

	time.Sleep(50 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := NewRegistry()

	r.Arm(TypingExpiry, "u1", time.Minute, func() {})
	r.Arm(TypingExpiry, "u2", time.Minute, func() {})
	r.Arm(TypingDebounce, "u1", time.Minute, func() {})

	require.Equal(t, 3, r.Len())
	require.True(t, r.Cancel(TypingExpiry, "u2"))
	require.True(t, r.Pending(TypingExpiry, "u1"))
	require.True(t, r.Pending(TypingDebounce, "u1"))
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		r.Arm(TypingExpiry, id, 30*time.Millisecond, func() { fired.Add(1) })
	}

	r.CancelAll()
	require.Zero(t, r.Len())

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, fired.Load())

	// Idempotent.
	r.CancelAll()
}
