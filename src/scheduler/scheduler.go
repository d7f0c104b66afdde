// Package scheduler is a deterministic discrete-event loop. It owns the
// simulation clock and runs callbacks in (due time, priority, sequence) order.
package scheduler

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/btree"
	"github.com/rs/zerolog"
)

// DefaultPriority is used by Schedule. Lower values run first among events
// due at the same time.
const DefaultPriority = 1

var (
	ErrNegativeDelay = errors.New("delay must be a non-negative number")
	ErrNilCallback   = errors.New("callback is nil")
)

type event struct {
	due      float64
	priority int
	seq      uint64
	callback func()
}

func eventLess(a, b *event) bool {
	if a.due != b.due {
		return a.due < b.due
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// Scheduler is single-threaded: callbacks run to completion on the caller's
// goroutine and may schedule further events.
type Scheduler struct {
	queue     *btree.BTreeG[*event]
	now       float64
	seq       uint64
	processed int
	log       zerolog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		queue: btree.NewG(16, eventLess),
		log:   zerolog.Nop(),
	}
}

// WithLogger attaches a logger for debug tracing of the event loop.
func (s *Scheduler) WithLogger(log zerolog.Logger) *Scheduler {
	s.log = log.With().Str("component", "scheduler").Logger()
	return s
}

func (s *Scheduler) Schedule(delay float64, callback func()) error {
	return s.ScheduleWithPriority(delay, DefaultPriority, callback)
}

// ScheduleWithPriority queues callback at Now()+delay.
func (s *Scheduler) ScheduleWithPriority(delay float64, priority int, callback func()) error {
	// edge case: NaN compares false against everything, reject it explicitly
	if delay < 0 || math.IsNaN(delay) {
		return fmt.Errorf("%w: %v", ErrNegativeDelay, delay)
	}
	if callback == nil {
		return ErrNilCallback
	}

	s.seq++
	s.queue.ReplaceOrInsert(&event{
		due:      s.now + delay,
		priority: priority,
		seq:      s.seq,
		callback: callback,
	})
	return nil
}

// ProcessNext runs the earliest event. It returns false when the queue is empty.
func (s *Scheduler) ProcessNext() bool {
	ev, ok := s.queue.DeleteMin()
	if !ok {
		return false
	}

	s.now = ev.due
	s.processed++
	s.log.Trace().
		Float64("time", ev.due).
		Int("priority", ev.priority).
		Uint64("seq", ev.seq).
		Msg("Processing event")

	ev.callback()
	return true
}

// RunUntil processes every event due at or before maxTime, then moves the
// clock to maxTime. It returns the number of events processed.
func (s *Scheduler) RunUntil(maxTime float64) int {
	n := 0
	for {
		next, ok := s.queue.Min()
		if !ok || next.due > maxTime {
			break
		}
		s.ProcessNext()
		n++
	}

	// edge case: a horizon behind the clock must not rewind time
	if maxTime > s.now {
		s.now = maxTime
	}

	s.log.Debug().
		Float64("time", s.now).
		Int("processed", n).
		Int("pending", s.queue.Len()).
		Msg("Run finished")
	return n
}

func (s *Scheduler) Now() float64 {
	return s.now
}

func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// NextDue reports the due time of the earliest queued event.
func (s *Scheduler) NextDue() (float64, bool) {
	ev, ok := s.queue.Min()
	if !ok {
		return 0, false
	}
	return ev.due, true
}

// Processed is the total number of events run so far.
func (s *Scheduler) Processed() int {
	return s.processed
}
