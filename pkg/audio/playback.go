package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AConteh33/go-marcus/internal/log"
)

// Sink receives scheduled mono samples for actual output. A real sink
// (Speaker) blocks for roughly the samples' duration; tests substitute a
// recording sink.
type Sink interface {
	Write(samples []int16) error

	// Reset discards any internally buffered tail so stale audio never
	// precedes the next chunk after an interruption.
	Reset()

	Close() error
}

// Clock measures time within the playback context. Reset rewinds it to
// zero, which happens on an interruption signal.
type Clock interface {
	Now() time.Duration
	Reset()
}

// systemClock is the wall-clock playback timeline.
type systemClock struct {
	mu    sync.Mutex
	epoch time.Time
}

func newSystemClock() *systemClock {
	return &systemClock{epoch: time.Now()}
}

func (c *systemClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.epoch)
}

func (c *systemClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = time.Now()
}

// Scheduler plays arbitrarily chunked backend audio gaplessly and in
// order. Each chunk is scheduled to start at max(clock now, next scheduled
// start), and the next scheduled start advances by the chunk's duration,
// so in-order chunks never overlap and leave no silence gaps. An
// interruption stops every pending and playing chunk and resets the
// schedule clock to zero.
type Scheduler struct {
	mu       sync.Mutex
	sink     Sink
	clock    Clock
	rate     int
	channels int
	next     time.Duration
	pending  map[string]*scheduledChunk
	gen      int
	closed   bool

	// test hook, fires under lock with each chunk's schedule
	onSchedule func(start, duration time.Duration)

	logger interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

type scheduledChunk struct {
	timer *time.Timer
	buf   Buffer
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock substitutes the playback clock (used by tests).
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithScheduleHook observes each chunk's scheduled start and duration.
func WithScheduleHook(fn func(start, duration time.Duration)) SchedulerOption {
	return func(s *Scheduler) { s.onSchedule = fn }
}

// NewScheduler creates a playback scheduler feeding the given sink.
// rate is the playback sample rate; channels is the channel count of
// incoming payloads before downmix.
func NewScheduler(sink Sink, rate, channels int, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sink:     sink,
		clock:    newSystemClock(),
		rate:     rate,
		channels: channels,
		pending:  make(map[string]*scheduledChunk),
		logger:   log.Component("playback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue decodes a backend audio payload and schedules it for playback.
func (s *Scheduler) Enqueue(data []byte, mimeType string) error {
	buf, err := Decode(data, mimeType, s.rate, s.channels)
	if err != nil {
		return err
	}
	return s.EnqueueBuffer(buf)
}

// EnqueueBuffer schedules an already-decoded buffer.
func (s *Scheduler) EnqueueBuffer(buf Buffer) error {
	if len(buf.Samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	now := s.clock.Now()
	start := now
	if s.next > start {
		start = s.next
	}
	duration := buf.Duration()
	s.next = start + duration

	if s.onSchedule != nil {
		s.onSchedule(start, duration)
	}

	id := uuid.NewString()
	chunk := &scheduledChunk{buf: buf}
	chunk.timer = time.AfterFunc(start-now, func() { s.play(id) })
	s.pending[id] = chunk
	return nil
}

// play emits a chunk whose start time has arrived. The chunk is fed to
// the sink in short blocks with an interruption check between them, so a
// barge-in cuts a long chunk off within a block rather than after the
// whole chunk has played out.
func (s *Scheduler) play(id string) {
	s.mu.Lock()
	chunk, ok := s.pending[id]
	sink := s.sink
	gen := s.gen
	s.mu.Unlock()
	if !ok {
		return
	}

	samples := chunk.buf.Samples
	block := s.rate / 10
	if block < 1 {
		block = len(samples)
	}
	for off := 0; off < len(samples); off += block {
		if s.interruptedSince(gen) {
			return
		}
		end := off + block
		if end > len(samples) {
			end = len(samples)
		}
		if err := sink.Write(samples[off:end]); err != nil {
			s.logger.Warn("sink write failed", "error", err)
			break
		}
	}

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// interruptedSince reports whether Interrupt ran after the given
// generation was captured.
func (s *Scheduler) interruptedSince(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// Interrupt stops all in-flight playback immediately, discards chunks that
// have not started, and resets the schedule clock to zero.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	for id, chunk := range s.pending {
		chunk.timer.Stop()
		delete(s.pending, id)
	}
	s.next = 0
	s.gen++
	s.clock.Reset()
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink.Reset()
	}
}

// Pending returns the number of chunks scheduled but not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextStart returns the next chunk's earliest scheduled start time.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Close interrupts playback and releases the sink. Safe to call more than
// once, and never fails outward.
func (s *Scheduler) Close() error {
	s.Interrupt()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		if err := sink.Close(); err != nil {
			s.logger.Warn("sink close failed", "error", err)
		}
	}
	return nil
}
