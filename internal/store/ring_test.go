package store

import (
	"sync"
	"testing"
	"time"

	"github.com/i474232898/dht-data/internal/sensor"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(i int) sensor.Record {
	return sensor.NewRecord(sensor.NewReading(float64(i), float64(100-i%100)), base.Add(time.Duration(i)*time.Minute))
}

func TestRingStore_Defaults(t *testing.T) {
	rs := NewRingStore(0, nil)

	if rs.Cap() != DefaultCapacity {
		t.Fatalf("expected capacity=%d, got %d", DefaultCapacity, rs.Cap())
	}
	if rs.Len() != 0 {
		t.Fatalf("new store should be empty, got len=%d", rs.Len())
	}
	if got := rs.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(got))
	}
}

func TestRingStore_LenIsMinOfWritesAndCapacity(t *testing.T) {
	for _, n := range []int{0, 1, 10, 143, 144, 145, 300} {
		rs := NewRingStore(DefaultCapacity, nil)
		for i := 0; i < n; i++ {
			rs.Append(record(i))
		}
		want := n
		if want > DefaultCapacity {
			want = DefaultCapacity
		}
		if rs.Len() != want {
			t.Errorf("after %d writes expected len=%d, got %d", n, want, rs.Len())
		}
		if rs.Cursor() != n%DefaultCapacity {
			t.Errorf("after %d writes expected cursor=%d, got %d", n, n%DefaultCapacity, rs.Cursor())
		}
	}
}

func TestRingStore_EvictsOldestFirst(t *testing.T) {
	rs := NewRingStore(DefaultCapacity, nil)
	for i := 1; i <= 145; i++ {
		rs.Append(record(i))
	}

	snap := rs.Snapshot()
	if len(snap) != DefaultCapacity {
		t.Fatalf("expected len=%d, got %d", DefaultCapacity, len(snap))
	}
	if snap[0].Value.Temperature != 2 {
		t.Fatalf("expected R1 evicted and R2 oldest, got oldest temperature %v", snap[0].Value.Temperature)
	}
	if snap[len(snap)-1].Value.Temperature != 145 {
		t.Fatalf("expected R145 newest, got %v", snap[len(snap)-1].Value.Temperature)
	}
	for _, rec := range snap {
		if rec.Value.Temperature == 1 {
			t.Fatal("R1 should no longer be present")
		}
	}
}

func TestRingStore_OverwritesRecordFromCapacityWritesAgo(t *testing.T) {
	const capacity = 5
	rs := NewRingStore(capacity, nil)
	for i := 0; i < capacity; i++ {
		rs.Append(record(i))
	}

	for k := 0; k < 3*capacity; k++ {
		n := capacity + k
		evicted := float64(n - capacity)
		rs.Append(record(n))

		snap := rs.Snapshot()
		for _, rec := range snap {
			if rec.Value.Temperature == evicted {
				t.Fatalf("write %d should have evicted record %v", n, evicted)
			}
		}
		if snap[0].Value.Temperature != evicted+1 {
			t.Fatalf("write %d: expected oldest %v, got %v", n, evicted+1, snap[0].Value.Temperature)
		}
	}
}

func TestRingStore_SnapshotIsACopy(t *testing.T) {
	rs := NewRingStore(3, nil)
	rs.Append(record(1))

	snap := rs.Snapshot()
	snap[0].Value.Temperature = 999

	if got := rs.Snapshot()[0].Value.Temperature; got != 1 {
		t.Fatalf("mutating a snapshot changed the store: got %v", got)
	}
}

func TestRingStore_SeedSortsAndKeepsNewest(t *testing.T) {
	seed := []sensor.Record{record(4), record(1), record(3), record(0), record(2)}
	rs := NewRingStore(3, seed)

	snap := rs.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected len=3, got %d", len(snap))
	}
	for i, want := range []float64{2, 3, 4} {
		if snap[i].Value.Temperature != want {
			t.Errorf("slot %d: expected %v, got %v", i, want, snap[i].Value.Temperature)
		}
	}

	// Full seed leaves the cursor on the oldest record.
	rs.Append(record(5))
	if snap := rs.Snapshot(); snap[0].Value.Temperature != 3 {
		t.Fatalf("expected record 2 evicted first, oldest is now %v", snap[0].Value.Temperature)
	}
}

func TestRingStore_ConcurrentReaders(t *testing.T) {
	rs := NewRingStore(DefaultCapacity, nil)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := rs.Snapshot()
				if len(snap) > DefaultCapacity {
					t.Errorf("snapshot exceeded capacity: %d", len(snap))
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		rs.Append(record(i))
	}
	wg.Wait()

	if rs.Len() != DefaultCapacity {
		t.Fatalf("expected len=%d, got %d", DefaultCapacity, rs.Len())
	}
}
