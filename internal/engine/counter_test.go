package engine_test

import (
	"sync"
	"testing"

	"bbdrop/internal/engine"
)

func TestByteCounterAdd(t *testing.T) {
	counter := engine.NewByteCounter()
	counter.Add(100)
	counter.Add(50)
	counter.Add(-25)
	counter.Add(0)
	if got := counter.Total(); got != 150 {
		t.Fatalf("expected 150 bytes, got %d", got)
	}
	counter.Reset()
	if got := counter.Total(); got != 0 {
		t.Fatalf("expected 0 after reset, got %d", got)
	}
}

func TestByteCounterDeltaFunc(t *testing.T) {
	counter := engine.NewByteCounter()
	report := counter.DeltaFunc()
	report(10)
	report(25)
	report(25)
	report(40)
	if got := counter.Total(); got != 40 {
		t.Fatalf("expected cumulative reports to count once, got %d", got)
	}

	second := counter.DeltaFunc()
	second(5)
	if got := counter.Total(); got != 45 {
		t.Fatalf("expected independent offsets per callback, got %d", got)
	}
}

func TestByteCounterConcurrent(t *testing.T) {
	counter := engine.NewByteCounter()
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 128 {
				counter.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := counter.Total(); got != 64*128 {
		t.Fatalf("expected %d bytes, got %d", 64*128, got)
	}
}
