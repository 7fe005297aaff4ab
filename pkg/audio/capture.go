package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/AConteh33/go-marcus/internal/log"
)

// captureFrameSize is the fixed block size of the capture tap, in mono
// samples at the device rate.
const captureFrameSize = 1024

// CaptureConfig holds microphone capture parameters.
type CaptureConfig struct {
	// DeviceRate is the microphone's native sample rate.
	DeviceRate int

	// WireRate is the sample rate the backend expects on its input.
	WireRate int
}

// DefaultCaptureConfig returns capture parameters for the Gemini Live
// input format (16kHz mono PCM16) from a typical 48kHz device.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		DeviceRate: 48000,
		WireRate:   16000,
	}
}

// Capture taps the default microphone through a fixed-size mono block
// processor, resamples each block from the device rate to the wire rate
// and hands the packed PCM16 frame to a callback. Output is dropped while
// muted; the session mutes capture whenever the assistant is speaking so
// its own voice is not fed back.
type Capture struct {
	cfg CaptureConfig

	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
	stopped bool
	muted   bool

	logger interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// NewCapture creates a microphone capture with the given configuration.
func NewCapture(cfg CaptureConfig) *Capture {
	if cfg.DeviceRate <= 0 {
		cfg.DeviceRate = 48000
	}
	if cfg.WireRate <= 0 {
		cfg.WireRate = 16000
	}
	return &Capture{
		cfg:    cfg,
		logger: log.Component("capture"),
	}
}

// Start acquires the microphone once and begins delivering frames to
// onFrame until Stop. Frames are mono PCM16 bytes at the wire rate.
func (c *Capture) Start(onFrame func(pcm16 []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("audio: capture already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: portaudio init: %w", err)
	}

	buf := make([]int16, captureFrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.cfg.DeviceRate), len(buf), buf)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("audio: open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("audio: start capture stream: %w", err)
	}

	c.stream = stream
	c.started = true
	c.stopped = false

	go c.readLoop(stream, buf, onFrame)
	return nil
}

// readLoop pumps fixed-size blocks until Stop.
func (c *Capture) readLoop(stream *portaudio.Stream, buf []int16, onFrame func([]byte)) {
	for {
		c.mu.Lock()
		stopped := c.stopped
		muted := c.muted
		c.mu.Unlock()
		if stopped {
			return
		}

		if err := stream.Read(); err != nil {
			c.mu.Lock()
			stopped := c.stopped
			c.mu.Unlock()
			if !stopped {
				c.logger.Warn("capture read failed", "error", err)
			}
			return
		}

		if muted {
			continue
		}

		frame := make([]int16, len(buf))
		copy(frame, buf)
		frame = Resample(frame, c.cfg.DeviceRate, c.cfg.WireRate)
		onFrame(ConvertInt16ToPCM16(frame))
	}
}

// SetMuted gates capture output without releasing the microphone.
func (c *Capture) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
}

// Stop releases the microphone. Idempotent, and safe to call even if the
// stream was never acquired; failures in individual steps are logged and
// swallowed so teardown always completes.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.started {
		c.stopped = true
		return
	}
	c.stopped = true
	c.started = false

	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			c.logger.Warn("capture stream stop failed", "error", err)
		}
		if err := c.stream.Close(); err != nil {
			c.logger.Warn("capture stream close failed", "error", err)
		}
		c.stream = nil
	}
	if err := portaudio.Terminate(); err != nil {
		c.logger.Warn("portaudio terminate failed", "error", err)
	}
}
