package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/AConteh33/go-marcus/internal/log"
)

// speakerFrameSize is the output block size in mono samples.
const speakerFrameSize = 1024

// Speaker is a Sink playing mono PCM16 through the default output device.
// Write blocks for roughly the duration of the samples, which is what the
// playback scheduler relies on for gapless sequencing.
type Speaker struct {
	rate int

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	queue  frameQueue
	opened bool
	closed bool

	logger interface {
		Warn(msg string, args ...any)
	}
}

// NewSpeaker creates a speaker sink at the given playback sample rate.
func NewSpeaker(rate int) *Speaker {
	return &Speaker{
		rate:   rate,
		logger: log.Component("speaker"),
	}
}

// Open acquires the output device. Called lazily by Write.
func (s *Speaker) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Speaker) openLocked() error {
	if s.opened {
		return nil
	}
	if s.closed {
		return fmt.Errorf("audio: speaker closed")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: portaudio init: %w", err)
	}

	s.buf = make([]int16, speakerFrameSize)
	s.queue.size = len(s.buf)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.rate), len(s.buf), s.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("audio: open playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("audio: start playback stream: %w", err)
	}

	s.stream = stream
	s.opened = true
	return nil
}

// Write plays the samples, blocking until they are queued to the device.
// The tail that does not fill a device block is carried into the next
// call instead of being padded, so consecutive chunks play back to back
// without injected silence.
func (s *Speaker) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return err
	}

	return s.queue.push(samples, func(block []int16) error {
		copy(s.buf, block)
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("audio: playback write: %w", err)
		}
		return nil
	})
}

// Reset drops the carried tail so it never leaks into the next response
// after an interruption.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.reset()
}

// Close releases the output device. Idempotent; step failures are logged
// and swallowed.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stream != nil {
		if tail := s.queue.drainPadded(); tail != nil {
			copy(s.buf, tail)
			if err := s.stream.Write(); err != nil {
				s.logger.Warn("playback tail flush failed", "error", err)
			}
		}
		if err := s.stream.Stop(); err != nil {
			s.logger.Warn("playback stream stop failed", "error", err)
		}
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("playback stream close failed", "error", err)
		}
		s.stream = nil
	}
	if s.opened {
		if err := portaudio.Terminate(); err != nil {
			s.logger.Warn("portaudio terminate failed", "error", err)
		}
		s.opened = false
	}
	return nil
}

var _ Sink = (*Speaker)(nil)

// frameQueue chops incoming samples into fixed-size device blocks,
// carrying the remainder across pushes so block boundaries never fall
// inside padded silence.
type frameQueue struct {
	size  int
	carry []int16
}

// push appends samples and emits every full block. A short tail stays
// queued for the next push. If emit fails, the failed block is dropped
// and the error returned.
func (q *frameQueue) push(samples []int16, emit func(block []int16) error) error {
	q.carry = append(q.carry, samples...)
	off := 0
	for len(q.carry)-off >= q.size {
		block := q.carry[off : off+q.size]
		off += q.size
		if err := emit(block); err != nil {
			q.carry = append(q.carry[:0], q.carry[off:]...)
			return err
		}
	}
	q.carry = append(q.carry[:0], q.carry[off:]...)
	return nil
}

// drainPadded returns the queued tail zero-padded to a full block, or nil
// when nothing is queued.
func (q *frameQueue) drainPadded() []int16 {
	if len(q.carry) == 0 {
		return nil
	}
	block := make([]int16, q.size)
	copy(block, q.carry)
	q.carry = q.carry[:0]
	return block
}

func (q *frameQueue) reset() {
	q.carry = q.carry[:0]
}

func (q *frameQueue) buffered() int {
	return len(q.carry)
}
