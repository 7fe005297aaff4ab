package audio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/hraban/opus.v2"
)

// Buffer is decoded mono audio ready for playback scheduling.
type Buffer struct {
	Samples []int16
	Rate    int
}

// Duration returns the buffer's playback duration.
func (b Buffer) Duration() time.Duration {
	if b.Rate <= 0 || len(b.Samples) == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.Rate)
}

// opusFrameSize bounds a single decoded Opus frame at 48kHz (120ms).
const opusFrameSize = 5760

// Decode converts a backend audio payload into a playable mono buffer at
// targetRate. Raw PCM16 (the Gemini Live default) and Opus payloads are
// supported; the payload rate is taken from the MIME type when present
// (e.g. "audio/pcm;rate=24000").
func Decode(data []byte, mimeType string, targetRate, channels int) (Buffer, error) {
	if targetRate <= 0 {
		return Buffer{}, fmt.Errorf("audio: invalid target rate %d", targetRate)
	}
	if channels <= 0 {
		channels = 1
	}

	base, srcRate := parseMIME(mimeType, targetRate)

	switch base {
	case "audio/pcm", "":
		samples := ConvertPCM16ToInt16(data)
		samples = downmixInterleaved(samples, channels)
		if srcRate != targetRate {
			samples = Resample(samples, srcRate, targetRate)
		}
		return Buffer{Samples: samples, Rate: targetRate}, nil

	case "audio/opus":
		dec, err := opus.NewDecoder(48000, channels)
		if err != nil {
			return Buffer{}, fmt.Errorf("audio: opus decoder: %w", err)
		}
		pcm := make([]int16, opusFrameSize*channels)
		n, err := dec.Decode(data, pcm)
		if err != nil {
			return Buffer{}, fmt.Errorf("audio: opus decode: %w", err)
		}
		samples := downmixInterleaved(pcm[:n*channels], channels)
		if targetRate != 48000 {
			samples = Resample(samples, 48000, targetRate)
		}
		return Buffer{Samples: samples, Rate: targetRate}, nil

	default:
		return Buffer{}, fmt.Errorf("audio: unsupported payload type %q", mimeType)
	}
}

// parseMIME splits "audio/pcm;rate=24000" into base type and rate,
// defaulting the rate when the parameter is absent.
func parseMIME(mimeType string, defaultRate int) (string, int) {
	base := mimeType
	rate := defaultRate
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		base = mimeType[:i]
		for _, param := range strings.Split(mimeType[i+1:], ";") {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "rate="); ok {
				if r, err := strconv.Atoi(v); err == nil && r > 0 {
					rate = r
				}
			}
		}
	}
	return strings.TrimSpace(base), rate
}
