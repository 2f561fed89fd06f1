package music

// OnStopListener is notified when a reference runs out of data without
// looping.
type OnStopListener func()

// Reference is a mixer's view of one playing instance of a piece of music.
//
// Positions are expressed in bytes per channel. Sample data is 16-bit signed
// PCM with two channels, so a single sample of one channel occupies two bytes.
//
// All methods are safe for concurrent use. A mixer goroutine typically pulls
// data using NextTwoBytes and SkipBytes while a control goroutine changes
// playback settings.
type Reference interface {
	// Playing returns whether the mixer should pull data from the reference.
	Playing() bool
	// SetPlaying sets whether the mixer should pull data from the reference.
	// Pausing a reference does not notify the stop listener.
	SetPlaying(playing bool) error

	// Loop returns whether the reference restarts at the loop position when
	// reaching the end of its data.
	Loop() bool
	// SetLoop sets whether the reference restarts at the loop position when
	// reaching the end of its data.
	SetLoop(loop bool) error

	// Position returns the byte index of the reference.
	Position() int64
	// SetPosition sets the byte index of the reference.
	SetPosition(position int64) error

	// LoopPosition returns the byte index playback resumes from when looping.
	LoopPosition() int64
	// SetLoopPosition sets the byte index playback resumes from when looping.
	SetLoopPosition(position int64) error

	// Volume returns the linear gain of the reference.
	Volume() float64
	// SetVolume sets the linear gain of the reference.
	SetVolume(volume float64) error

	// Pan returns the stereo balance of the reference, -1.0 being full left
	// and 1.0 being full right.
	Pan() float64
	// SetPan sets the stereo balance of the reference. Must be between -1.0
	// and 1.0.
	SetPan(pan float64) error

	// BytesAvailable returns the number of bytes remaining for each channel.
	BytesAvailable() int64
	// Done returns true if there are no bytes remaining and the reference is
	// no longer playing.
	Done() bool

	// SkipBytes skips num bytes of each channel.
	SkipBytes(num int64) error
	// NextTwoBytes reads the next sample of each channel into data, left
	// channel first, interpreting the byte pairs in the specified endianness.
	NextTwoBytes(data *[2]int, bigEndian bool) error

	// Dispose releases any resources held by the reference. The reference
	// cannot be used afterwards.
	Dispose() error

	// SetOnStopListener sets the listener notified when the reference runs out
	// of data. Replaces any previous listener. A nil listener clears it.
	SetOnStopListener(listener OnStopListener)
}

// State is a summary of a reference's playback state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StateLoopingPlaying
	StateDone
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateLoopingPlaying:
		return "looping"
	case StateDone:
		return "done"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// DecodeSample decodes a signed 16-bit sample.
func DecodeSample(pair [2]byte, bigEndian bool) int {
	if bigEndian {
		return int(int16(uint16(pair[0])<<8 | uint16(pair[1])))
	}
	return int(int16(uint16(pair[1])<<8 | uint16(pair[0])))
}

// EncodeSample encodes a signed 16-bit sample into dst.
func EncodeSample(dst []byte, sample int16, bigEndian bool) {
	if bigEndian {
		dst[0] = byte(uint16(sample) >> 8)
		dst[1] = byte(sample)
	} else {
		dst[0] = byte(sample)
		dst[1] = byte(uint16(sample) >> 8)
	}
}
