package store

import (
	"sort"
	"sync"

	"github.com/i474232898/dht-data/internal/sensor"
)

var _ sensor.Store = (*RingStore)(nil)

// DefaultCapacity holds 24h of readings at one reading every 10 minutes.
const DefaultCapacity = 144

// RingStore is a fixed-capacity history of records.
// Slots are allocated once; when full, each write overwrites the oldest slot.
type RingStore struct {
	mu     sync.RWMutex
	slots  []sensor.Record
	cursor int // next slot to write; equals count until the ring is full
	count  int
}

// NewRingStore creates a RingStore seeded with initial.
// initial is ordered by date; only the newest capacity records are kept.
// If capacity is <= 0, DefaultCapacity is used.
func NewRingStore(capacity int, initial []sensor.Record) *RingStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	rs := &RingStore{
		slots: make([]sensor.Record, capacity),
	}

	seed := make([]sensor.Record, len(initial))
	copy(seed, initial)
	sort.SliceStable(seed, func(i, j int) bool {
		return seed[i].Date.Before(seed[j].Date)
	})
	if len(seed) > capacity {
		seed = seed[len(seed)-capacity:]
	}
	for _, rec := range seed {
		rs.write(rec)
	}
	return rs
}

// Append stores rec, overwriting the oldest record if the ring is full.
func (rs *RingStore) Append(rec sensor.Record) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.write(rec)
}

func (rs *RingStore) write(rec sensor.Record) {
	rs.slots[rs.cursor] = rec
	rs.cursor = (rs.cursor + 1) % len(rs.slots)
	if rs.count < len(rs.slots) {
		rs.count++
	}
}

// Snapshot returns a copy of the stored records, oldest first.
func (rs *RingStore) Snapshot() []sensor.Record {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]sensor.Record, 0, rs.count)
	if rs.count < len(rs.slots) {
		return append(out, rs.slots[:rs.count]...)
	}
	out = append(out, rs.slots[rs.cursor:]...)
	return append(out, rs.slots[:rs.cursor]...)
}

// Len returns the number of stored records.
func (rs *RingStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.count
}

// Cursor returns the slot the next write lands in.
func (rs *RingStore) Cursor() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.cursor
}

// Cap returns the fixed capacity.
func (rs *RingStore) Cap() int {
	return len(rs.slots)
}
