package sensor

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/i474232898/dht-data/internal/metrics"
)

// IngestDepth is the capacity of the channel between producers and the writer.
const IngestDepth = 2

// ErrEmpty is returned when the history holds no records.
var ErrEmpty = errors.New("no records stored")

// Service owns the write path into the Store and the read projections served over HTTP.
// Every mutation goes through the ingestion channel and is applied by Run.
type Service struct {
	store     Store
	persister Persister
	ingest    chan Reading
	zone      *time.Location
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithZone sets the zone used to render Entry dates.
func WithZone(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.zone = loc
		}
	}
}

// WithClock replaces the wall clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service. persister may be nil to keep the history in memory only.
func NewService(store Store, persister Persister, opts ...Option) *Service {
	s := &Service{
		store:     store,
		persister: persister,
		ingest:    make(chan Reading, IngestDepth),
		zone:      time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues r for the writer. It blocks while the channel is full and
// returns ctx.Err() if ctx ends first.
func (s *Service) Submit(ctx context.Context, r Reading) error {
	select {
	case s.ingest <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many readings are queued but not yet applied.
func (s *Service) Pending() int {
	return len(s.ingest)
}

// Run applies queued readings one at a time until ctx is done.
func (s *Service) Run(ctx context.Context) {
	log.Println("writer: started")
	for {
		select {
		case <-ctx.Done():
			log.Println("writer: stopped")
			return
		case r := <-s.ingest:
			s.accept(r)
		}
	}
}

// accept stamps r, stores it and rewrites the persisted history.
// A failed rewrite is logged; the next accepted reading retries it in full.
func (s *Service) accept(r Reading) {
	s.store.Append(NewRecord(r, s.now()))

	records := s.store.Snapshot()
	metrics.Records.Set(float64(len(records)))

	if s.persister == nil {
		return
	}

	start := time.Now()
	err := s.persister.Save(records)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistFailures.Inc()
		log.Printf("ERROR: writer: failed to persist %d records: %v", len(records), err)
	}
}

// Len returns the number of stored records.
func (s *Service) Len() int {
	return s.store.Len()
}

// List returns every stored record projected for display, sorted by timestamp.
func (s *Service) List(order Order) []Entry {
	records := s.store.Snapshot()

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Entry(s.zone))
	}

	if order == Descending {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp > entries[j].Timestamp
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp < entries[j].Timestamp
		})
	}
	return entries
}

// Last returns the most recent entry, or ErrEmpty.
func (s *Service) Last() (Entry, error) {
	entries := s.List(Ascending)
	if len(entries) == 0 {
		return Entry{}, ErrEmpty
	}
	return entries[len(entries)-1], nil
}
