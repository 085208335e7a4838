package fiscal

import (
	"context"
	"sync"
	"testing"
)

func TestStubDeviceSequence(t *testing.T) {
	d := NewStubDevice()
	ctx := context.Background()

	first, err := d.RequestSeal(ctx, 2500)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.RequestSeal(ctx, 2500)
	if err != nil {
		t.Fatal(err)
	}
	if first.Counter != 1 || second.Counter != 2 {
		t.Errorf("counters = %d, %d; want 1, 2", first.Counter, second.Counter)
	}
	if first.SealCode == second.SealCode {
		t.Errorf("same price, different counter must give different codes: %q", first.SealCode)
	}
	if first.SerialNumber != second.SerialNumber {
		t.Errorf("serial changed between seals")
	}
	if d.Counter() != 2 {
		t.Errorf("Counter() = %d, want 2", d.Counter())
	}
}

func TestStubDeviceDeterministicSeals(t *testing.T) {
	// two fresh stubs given the same sequence produce the same codes
	a, b := NewStubDevice(), NewStubDevice()
	ctx := context.Background()
	for _, price := range []uint32{0, 1000, 2500} {
		sa, _ := a.RequestSeal(ctx, price)
		sb, _ := b.RequestSeal(ctx, price)
		if sa.SealCode != sb.SealCode || sa.MAC != sb.MAC {
			t.Errorf("price %d: seals differ: %q/%q vs %q/%q", price, sa.SealCode, sa.MAC, sb.SealCode, sb.MAC)
		}
	}
}

func TestStubDeviceConcurrentCounters(t *testing.T) {
	d := NewStubDevice()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	counters := make(chan uint32, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := d.RequestSeal(ctx, 100)
			if err != nil {
				t.Error(err)
				return
			}
			counters <- s.Counter
		}()
	}
	wg.Wait()
	close(counters)

	seen := make(map[uint32]bool)
	for c := range counters {
		if seen[c] {
			t.Fatalf("counter %d issued twice", c)
		}
		seen[c] = true
	}
	if len(seen) != n {
		t.Errorf("distinct counters = %d, want %d", len(seen), n)
	}
	if d.Counter() != n {
		t.Errorf("final counter = %d, want %d", d.Counter(), n)
	}
}

func TestStubDeviceProbes(t *testing.T) {
	d := NewStubDevice()
	if !d.IsDeviceConnected(context.Background()) {
		t.Error("stub must always be connected")
	}
	ready, reason := d.IsCardReady(context.Background())
	if !ready || reason != "" {
		t.Errorf("stub card ready = %v (%q)", ready, reason)
	}
}
