package oauth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStartRefresherCallsCheck(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRefresher(ctx, "test-provider", 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if calls.Load() < 2 {
		t.Errorf("check called %d times, want at least 2", calls.Load())
	}
}

func TestStartRefresherKeepsGoingAfterErrors(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRefresher(ctx, "test-provider", 10*time.Millisecond, func(context.Context) error {
		if calls.Add(1)%2 == 0 {
			return ErrNotLinked
		}
		return errors.New("token endpoint unavailable")
	})
	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if calls.Load() < 3 {
		t.Errorf("check called %d times, want at least 3", calls.Load())
	}
}

func TestStartRefresherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := StartRefresher(ctx, "test-provider", time.Hour, func(context.Context) error {
		t.Error("check should not run after cancel")
		return nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestNextSleepBounds(t *testing.T) {
	interval := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := nextSleep(interval)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("nextSleep() = %v, outside ±20%%", d)
		}
	}
	if got := nextSleep(time.Nanosecond); got != time.Nanosecond {
		t.Errorf("nextSleep(tiny) = %v", got)
	}
}
