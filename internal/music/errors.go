package music

import (
	"errors"
	"fmt"
)

var (
	ErrDisposed          = errors.New("music: reference is disposed")
	ErrPanOutOfRange     = errors.New("music: pan must be between -1.0 and 1.0")
	ErrInvalidVolume     = errors.New("music: volume must be a non-negative number")
	ErrOutOfBounds       = errors.New("music: position out of bounds")
	ErrMisaligned        = errors.New("music: position is not aligned to a sample")
	ErrEndOfStream       = errors.New("music: no bytes available")
	ErrNegativeSkip      = errors.New("music: cannot skip a negative number of bytes")
	ErrChannelMismatch   = errors.New("music: channels differ in length")
	ErrUnsupportedFormat = errors.New("music: unsupported format")
)

// BoundsError is returned when a position lies outside of a reference's data.
type BoundsError struct {
	// What names the position, such as "position" or "loop position".
	What   string
	Value  int64
	Length int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("music: %s %d out of bounds [0, %d]", e.What, e.Value, e.Length)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}
