package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSetNoDuplicates(t *testing.T) {
	s := NewSet()

	if !s.Add("fp-1") {
		t.Error("first Add should return true")
	}
	if s.Add("fp-1") {
		t.Error("second Add of same key should return false")
	}
	if !s.Contains("fp-1") {
		t.Error("added key should be contained")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestSetConcurrentAddIsAtomic(t *testing.T) {
	s := NewSet()
	var added int64

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("same-fingerprint") {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestRateGateEnforcesInterval(t *testing.T) {
	interval := 50 * time.Millisecond
	gate := NewRateGate(interval)

	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		gate.Wait()
		timestamps = append(timestamps, time.Now())
	}

	for i := 1; i < len(timestamps); i++ {
		if gap := timestamps[i].Sub(timestamps[i-1]); gap < interval {
			t.Errorf("gap between call %d and %d: %v < minimum %v", i-1, i, gap, interval)
		}
	}
}

func TestRateGateDisabled(t *testing.T) {
	gate := NewRateGate(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		gate.Wait()
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled gate should not block, took %v", elapsed)
	}
}
