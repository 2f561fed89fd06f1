package mixer

import (
	"io"

	"github.com/AlexGustafsson/pcmmix/internal/music"
	"github.com/gopxl/beep/v2"
)

var _ beep.Streamer = (*Streamer)(nil)

// Streamer exposes a Mixer as a beep.Streamer, converting its output to
// samples in the range [-1, 1].
type Streamer struct {
	reader    io.Reader
	bigEndian bool
	buffer    []byte
	err       error
}

func NewStreamer(mixer *Mixer) *Streamer {
	return &Streamer{
		reader:    mixer,
		bigEndian: mixer.bigEndian,
	}
}

// Stream implements beep.Streamer. The mixer never drains, so the stream
// never ends; use beep.Take to limit it.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}

	if len(samples) == 0 {
		return 0, true
	}

	size := len(samples) * FrameSize
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
	}

	n, err := s.reader.Read(s.buffer[:size])
	if err != nil {
		s.err = err
		return 0, false
	}

	frames := n / FrameSize
	for i := 0; i < frames; i++ {
		frame := s.buffer[i*FrameSize:]
		samples[i][0] = float64(music.DecodeSample([2]byte{frame[0], frame[1]}, s.bigEndian)) / 32768
		samples[i][1] = float64(music.DecodeSample([2]byte{frame[2], frame[3]}, s.bigEndian)) / 32768
	}

	return frames, true
}

// Err implements beep.Streamer.
func (s *Streamer) Err() error {
	return s.err
}
