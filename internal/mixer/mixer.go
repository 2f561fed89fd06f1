package mixer

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/AlexGustafsson/pcmmix/internal/music"
	"github.com/AlexGustafsson/pcmmix/internal/state"
)

// FrameSize is the size in bytes of a frame of interleaved stereo 16-bit PCM.
const FrameSize = 4

var _ io.Reader = (*Mixer)(nil)
var _ music.Registrar = (*Mixer)(nil)

type Options struct {
	// BigEndian controls the byte order of both the references' data and the
	// mixed output.
	BigEndian bool
	// Metrics is optional.
	Metrics *state.Metrics
}

// Mixer mixes the data of registered references into interleaved stereo
// 16-bit PCM.
//
// The mutex only guards the list of references. Each reference guards its own
// state, so references may be controlled while the mixer reads.
type Mixer struct {
	mutex      sync.Mutex
	references []music.Reference

	// volume holds the bits of a float64
	volume atomic.Uint64

	bigEndian bool
	metrics   *state.Metrics
}

func New(options *Options) *Mixer {
	if options == nil {
		options = &Options{}
	}

	mixer := &Mixer{
		references: make([]music.Reference, 0),
		bigEndian:  options.BigEndian,
		metrics:    options.Metrics,
	}
	mixer.volume.Store(math.Float64bits(1.0))
	return mixer
}

// Register adds a reference to mix. Registering a reference twice has no
// effect.
func (m *Mixer) Register(reference music.Reference) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if slices.Contains(m.references, reference) {
		return
	}

	m.references = append(m.references, reference)
	if m.metrics != nil {
		m.metrics.ReferencesRegistered.Inc()
		m.metrics.ActiveReferences.Set(float64(len(m.references)))
	}
}

// Unregister removes a reference.
func (m *Mixer) Unregister(reference music.Reference) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.references = slices.DeleteFunc(m.references, func(r music.Reference) bool {
		return r == reference
	})
	m.updateActive()
}

// Clear removes all references.
func (m *Mixer) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.references = make([]music.Reference, 0)
	m.updateActive()
}

// Len returns the number of registered references.
func (m *Mixer) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.references)
}

// Volume returns the global volume.
func (m *Mixer) Volume() float64 {
	return math.Float64frombits(m.volume.Load())
}

// SetVolume sets the global volume applied on top of each reference's volume.
func (m *Mixer) SetVolume(volume float64) error {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return music.ErrInvalidVolume
	}

	m.volume.Store(math.Float64bits(volume))
	return nil
}

// BigEndian returns the byte order of the mixed output.
func (m *Mixer) BigEndian() bool {
	return m.bigEndian
}

// Read implements io.Reader. It fills p with as many whole frames as fit.
// The mixer never runs out of data; it produces silence when nothing plays.
// References that are done or disposed are unregistered once p is filled.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / FrameSize
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	m.mutex.Lock()
	references := slices.Clone(m.references)
	m.mutex.Unlock()

	// Gains are read once per call so that a buffer is mixed with consistent
	// settings
	volume := m.Volume()
	sources := make([]source, len(references))
	for i, reference := range references {
		left, right := gains(reference.Volume()*volume, reference.Pan())
		sources[i] = source{reference: reference, left: left, right: right}
	}

	disposed := make(map[music.Reference]bool)
	clipped := 0

	var data [2]int
	for i := 0; i < frames; i++ {
		var left, right float64
		for _, src := range sources {
			reference := src.reference
			if disposed[reference] || !reference.Playing() {
				continue
			}

			if err := reference.NextTwoBytes(&data, m.bigEndian); err != nil {
				if errors.Is(err, music.ErrDisposed) {
					disposed[reference] = true
				} else if !errors.Is(err, music.ErrEndOfStream) {
					slog.Warn("Failed to read from music reference", slog.Any("error", err))
				}
				continue
			}

			left += float64(data[0]) * src.left
			right += float64(data[1]) * src.right
		}

		frame := p[i*FrameSize : (i+1)*FrameSize]
		leftSample, leftClipped := clamp(left)
		rightSample, rightClipped := clamp(right)
		music.EncodeSample(frame[0:2], leftSample, m.bigEndian)
		music.EncodeSample(frame[2:4], rightSample, m.bigEndian)

		if leftClipped {
			clipped++
		}
		if rightClipped {
			clipped++
		}
	}

	m.prune(references, disposed)

	if m.metrics != nil {
		m.metrics.FramesMixed.Add(float64(frames))
		m.metrics.ClippedSamples.Add(float64(clipped))
	}

	return frames * FrameSize, nil
}

// prune unregisters the references that are done or disposed.
func (m *Mixer) prune(references []music.Reference, disposed map[music.Reference]bool) {
	finished := make([]music.Reference, 0)
	for _, reference := range references {
		if disposed[reference] || reference.Done() {
			finished = append(finished, reference)
		}
	}

	if len(finished) == 0 {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.references = slices.DeleteFunc(m.references, func(r music.Reference) bool {
		return slices.Contains(finished, r)
	})
	m.updateActive()
}

// updateActive must be called with the mutex held.
func (m *Mixer) updateActive() {
	if m.metrics != nil {
		m.metrics.ActiveReferences.Set(float64(len(m.references)))
	}
}

// source is a reference together with its gains for one call to Read.
type source struct {
	reference music.Reference
	left      float64
	right     float64
}

// gains returns the left and right gain for a volume and pan. A negative pan
// attenuates the right channel, a positive pan attenuates the left channel.
func gains(volume float64, pan float64) (float64, float64) {
	left := volume
	right := volume
	if pan < 0 {
		right *= 1 + pan
	} else if pan > 0 {
		left *= 1 - pan
	}
	return left, right
}

// clamp converts a mixed value to a 16-bit sample. Returns whether the value
// had to be clipped.
func clamp(value float64) (int16, bool) {
	if value > math.MaxInt16 {
		return math.MaxInt16, true
	} else if value < math.MinInt16 {
		return math.MinInt16, true
	}
	return int16(value), false
}
