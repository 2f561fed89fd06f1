package music

import (
	"math"
	"sync"
)

// control holds the playback state shared by all Reference implementations.
// The mutex guards every field, including those of the embedding type.
type control struct {
	mutex sync.Mutex

	// length is the number of bytes per channel.
	length int64

	playing      bool
	loop         bool
	position     int64
	loopPosition int64
	volume       float64
	pan          float64
	onStop       OnStopListener
	disposed     bool
}

func (c *control) init(length int64) {
	c.length = length
	c.volume = 1.0
}

// Playing implements Reference.
func (c *control) Playing() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.playing
}

// SetPlaying implements Reference.
func (c *control) SetPlaying(playing bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	c.playing = playing
	return nil
}

// Loop implements Reference.
func (c *control) Loop() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.loop
}

// SetLoop implements Reference.
func (c *control) SetLoop(loop bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	c.loop = loop
	return nil
}

// Position implements Reference.
func (c *control) Position() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.position
}

// SetPosition implements Reference.
func (c *control) SetPosition(position int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	if err := c.checkBounds("position", position); err != nil {
		return err
	}

	c.position = position
	return nil
}

// LoopPosition implements Reference.
func (c *control) LoopPosition() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.loopPosition
}

// SetLoopPosition implements Reference.
func (c *control) SetLoopPosition(position int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	if err := c.checkBounds("loop position", position); err != nil {
		return err
	}

	c.loopPosition = position
	return nil
}

// Volume implements Reference.
func (c *control) Volume() float64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.volume
}

// SetVolume implements Reference.
func (c *control) SetVolume(volume float64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return ErrInvalidVolume
	}

	c.volume = volume
	return nil
}

// Pan implements Reference.
func (c *control) Pan() float64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pan
}

// SetPan implements Reference.
func (c *control) SetPan(pan float64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	// NaN fails both comparisons, so check for it explicitly
	if math.IsNaN(pan) || pan < -1.0 || pan > 1.0 {
		return ErrPanOutOfRange
	}

	c.pan = pan
	return nil
}

// BytesAvailable implements Reference.
func (c *control) BytesAvailable() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.available()
}

// Done implements Reference.
func (c *control) Done() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.available() == 0 && !c.playing
}

// State returns a summary of the reference's playback state.
func (c *control) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch {
	case c.disposed:
		return StateDisposed
	case c.available() == 0 && !c.playing:
		return StateDone
	case c.playing && c.loop:
		return StateLoopingPlaying
	case c.playing:
		return StatePlaying
	default:
		return StateStopped
	}
}

// SetOnStopListener implements Reference.
func (c *control) SetOnStopListener(listener OnStopListener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disposed {
		return
	}

	c.onStop = listener
}

// available returns the number of bytes left per channel.
// Must be called with the mutex held.
func (c *control) available() int64 {
	if c.disposed {
		return 0
	}
	return c.length - c.position
}

// checkBounds must be called with the mutex held.
func (c *control) checkBounds(what string, position int64) error {
	if position < 0 || position > c.length {
		return &BoundsError{What: what, Value: position, Length: c.length}
	}
	return nil
}

// advance moves the position num bytes forward, handling the end of the data.
// When looping, the position wraps into the region starting at the loop
// position. Otherwise the position stops at the end and playing is cleared.
// Returns whether playback stopped as a result and whether the position
// wrapped.
// Must be called with the mutex held.
func (c *control) advance(num int64) (stopped bool, wrapped bool) {
	// Compare before adding, num may be as large as math.MaxInt64
	remaining := c.length - c.position
	if num < remaining {
		c.position += num
		return false, false
	}

	overshoot := num - remaining
	if c.loop && c.loopPosition < c.length {
		region := c.length - c.loopPosition
		c.position = c.loopPosition + overshoot%region
		return false, true
	}

	c.position = c.length
	if c.playing {
		c.playing = false
		return true, false
	}
	return false, false
}

// unlockAndNotify releases the mutex and notifies the stop listener if
// stopped is true. The listener is never invoked with the mutex held.
func (c *control) unlockAndNotify(stopped bool) {
	listener := c.onStop
	c.mutex.Unlock()

	if stopped && listener != nil {
		listener()
	}
}

// dispose marks the reference as disposed.
// Must be called with the mutex held.
func (c *control) dispose() error {
	if c.disposed {
		return ErrDisposed
	}

	c.disposed = true
	c.playing = false
	c.onStop = nil
	return nil
}
