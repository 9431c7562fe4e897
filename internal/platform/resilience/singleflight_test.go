package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_WaitersShareLeaderResult(t *testing.T) {
	var g SingleFlight
	var runs, sharedCount atomic.Int32

	release := make(chan struct{})
	leaderStarted := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = g.Do("spartan-refresh", func() (any, error) {
			runs.Add(1)
			close(leaderStarted)
			<-release
			return "v4", nil
		})
	}()
	<-leaderStarted

	const waiters = 8
	results := make(chan any, waiters)
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err, shared := g.Do("spartan-refresh", func() (any, error) {
				runs.Add(1)
				return "unexpected", nil
			})
			if err != nil {
				t.Errorf("shared call failed: %v", err)
			}
			if shared {
				sharedCount.Add(1)
			}
			results <- val
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for val := range results {
		if val != "v4" {
			t.Fatalf("waiter got %v, want leader result", val)
		}
	}
	if runs.Load() != 1 || sharedCount.Load() != waiters {
		t.Fatalf("expected one run shared by all waiters: runs=%d shared=%d", runs.Load(), sharedCount.Load())
	}
}

func TestSingleFlight_KeyIsReleasedAfterCall(t *testing.T) {
	var g SingleFlight
	calls := 0
	for range 3 {
		if _, err, shared := g.Do("count", func() (any, error) { calls++; return calls, nil }); err != nil || shared {
			t.Fatalf("sequential call should run alone: err=%v shared=%v", err, shared)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 sequential runs, got %d", calls)
	}
}

func TestShare_TypedResultAndError(t *testing.T) {
	var g SingleFlight

	got, err := Share(&g, "count", func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("unexpected result: got=%d err=%v", got, err)
	}

	boom := errors.New("boom")
	got, err = Share(&g, "count", func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) || got != 0 {
		t.Fatalf("unexpected failure result: got=%d err=%v", got, err)
	}
}
