package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/dht-data/internal/metrics"
	"github.com/i474232898/dht-data/internal/sensor"
	"github.com/i474232898/dht-data/internal/sensor/source"
)

const (
	// DefaultPollInterval separates a successful fetch from the next one.
	DefaultPollInterval = 600 * time.Second
	// DefaultRetryInterval separates a failed fetch from the next attempt.
	DefaultRetryInterval = 60 * time.Second

	// tickInterval is the gocron granularity; the due-time gate decides when a fetch runs.
	tickInterval = time.Second
)

// Sink receives fetched readings. Submit may block.
type Sink interface {
	Submit(ctx context.Context, r sensor.Reading) error
}

// Scheduler polls a sensor on fixed intervals and forwards readings to a Sink.
// The gocron job ticks every second; a tick does nothing until the next
// attempt is due. Intervals are measured from the end of the previous attempt.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	source        sensor.Source
	sink          Sink
	pollInterval  time.Duration
	retryInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	nextDue time.Time
	ctx     context.Context
}

// New creates a new Scheduler. Non-positive intervals fall back to the defaults.
func New(src sensor.Source, sink Sink, pollInterval, retryInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Scheduler{
		scheduler:     gocron.NewScheduler(time.UTC),
		source:        src,
		sink:          sink,
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
		now:           time.Now,
		ctx:           context.Background(),
	}
}

// Start schedules the polling job and starts the underlying scheduler.
// The first fetch happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.source == nil {
		log.Println("scheduler: no sensor configured; nothing to schedule")
		return nil
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	_, err := s.scheduler.Every(tickInterval).SingletonMode().Tag("poll").Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: polling %s every %s (retry after %s)", s.source.Name(), s.pollInterval, s.retryInterval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// NextDue returns when the next fetch attempt will happen.
func (s *Scheduler) NextDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDue
}

// tick runs one fetch if it is due. Failures are logged and never stop polling.
func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	due := s.nextDue
	s.mu.Unlock()

	if s.now().Before(due) || ctx.Err() != nil {
		return
	}

	reading, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.Polls.WithLabelValues(failureKind(err)).Inc()
		log.Printf("scheduler: failed to get sensor %s: %v", s.source.Name(), err)
		s.setNextDue(s.now().Add(s.retryInterval))
		return
	}

	if err := s.sink.Submit(ctx, reading); err != nil {
		log.Printf("scheduler: reading dropped: %v", err)
		return
	}
	metrics.Polls.WithLabelValues("ok").Inc()
	s.setNextDue(s.now().Add(s.pollInterval))
}

func (s *Scheduler) setNextDue(t time.Time) {
	s.mu.Lock()
	s.nextDue = t
	s.mu.Unlock()
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, source.ErrDecode):
		return "decode"
	case errors.Is(err, source.ErrStatus):
		return "status"
	case errors.Is(err, source.ErrCircuitOpen):
		return "breaker"
	default:
		return "transport"
	}
}
