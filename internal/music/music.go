package music

import (
	"log/slog"
	"math"
	"time"
)

// Registrar keeps track of the references a mixer pulls data from.
type Registrar interface {
	Register(reference Reference)
	Unregister(reference Reference)
}

// Music is a piece of music with a single reference registered with a mixer.
// It is the control surface for playback; the mixer only sees the reference.
type Music struct {
	registrar  Registrar
	reference  Reference
	sampleRate int
}

// NewMemoryMusic creates music playing PCM held in memory.
func NewMemoryMusic(pcm *PCM, registrar Registrar) (*Music, error) {
	reference, err := NewMemoryReference(pcm.Left, pcm.Right)
	if err != nil {
		return nil, err
	}

	return newMusic(reference, pcm.SampleRate, registrar), nil
}

// NewStreamMusic creates music playing PCM read from a stream source.
func NewStreamMusic(source StreamSource, sampleRate int, registrar Registrar) (*Music, error) {
	reference, err := NewStreamReference(source)
	if err != nil {
		return nil, err
	}

	return newMusic(reference, sampleRate, registrar), nil
}

func newMusic(reference Reference, sampleRate int, registrar Registrar) *Music {
	registrar.Register(reference)
	return &Music{
		registrar:  registrar,
		reference:  reference,
		sampleRate: sampleRate,
	}
}

// Reference returns the reference registered with the mixer.
func (m *Music) Reference() Reference {
	return m.reference
}

// Play starts playing the music, rewinding it first if it has already played
// to the end.
func (m *Music) Play(loop bool) error {
	if m.reference.Done() {
		if err := m.reference.SetPosition(0); err != nil {
			return err
		}
	}

	if err := m.reference.SetLoop(loop); err != nil {
		return err
	}

	// Mixers drop references once they are done
	m.registrar.Register(m.reference)
	return m.reference.SetPlaying(true)
}

// Pause pauses playback, keeping the position.
func (m *Music) Pause() error {
	return m.reference.SetPlaying(false)
}

// Resume resumes playback from the current position. Music that has already
// played to the end starts over, as with Play.
func (m *Music) Resume() error {
	if m.reference.Done() {
		if err := m.reference.SetPosition(0); err != nil {
			return err
		}
	}

	m.registrar.Register(m.reference)
	return m.reference.SetPlaying(true)
}

// Stop stops playback and rewinds to the start.
func (m *Music) Stop() error {
	if err := m.reference.SetPlaying(false); err != nil {
		return err
	}
	return m.reference.SetPosition(0)
}

// Rewind moves to the start without affecting whether the music is playing.
func (m *Music) Rewind() error {
	return m.reference.SetPosition(0)
}

// RewindToLoopPosition moves to the loop position without affecting whether
// the music is playing.
func (m *Music) RewindToLoopPosition() error {
	return m.reference.SetPosition(m.reference.LoopPosition())
}

// Playing returns whether the music is playing.
func (m *Music) Playing() bool {
	return m.reference.Playing()
}

// Done returns whether the music has played to the end and stopped.
func (m *Music) Done() bool {
	return m.reference.Done()
}

func (m *Music) Loop() bool {
	return m.reference.Loop()
}

func (m *Music) SetLoop(loop bool) error {
	return m.reference.SetLoop(loop)
}

// SetLoopPositionByFrame sets the loop position to a sample frame.
func (m *Music) SetLoopPositionByFrame(frame int64) error {
	return m.reference.SetLoopPosition(frame * 2)
}

// SetLoopPositionByDuration sets the loop position to the frame closest to
// the offset.
func (m *Music) SetLoopPositionByDuration(offset time.Duration) error {
	frame := int64(math.Round(offset.Seconds() * float64(m.sampleRate)))
	return m.SetLoopPositionByFrame(frame)
}

// Position returns the playback position as a duration.
func (m *Music) Position() time.Duration {
	if m.sampleRate <= 0 {
		return 0
	}

	frames := m.reference.Position() / 2
	return time.Duration(frames) * time.Second / time.Duration(m.sampleRate)
}

func (m *Music) Volume() float64 {
	return m.reference.Volume()
}

func (m *Music) SetVolume(volume float64) error {
	return m.reference.SetVolume(volume)
}

func (m *Music) Pan() float64 {
	return m.reference.Pan()
}

func (m *Music) SetPan(pan float64) error {
	return m.reference.SetPan(pan)
}

// SetOnStopListener sets the listener notified when the music plays to the
// end without looping.
func (m *Music) SetOnStopListener(listener OnStopListener) {
	m.reference.SetOnStopListener(listener)
}

// Unload unregisters the music from the mixer and releases its resources.
func (m *Music) Unload() error {
	slog.Debug("Unloading music")
	m.registrar.Unregister(m.reference)
	return m.reference.Dispose()
}
