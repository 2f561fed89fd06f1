package music

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// frameSize is the size of an interleaved stereo frame of 16-bit samples.
const frameSize = 4

// streamBufferSize is the read buffer used by StreamReference. Roughly 370ms
// of 44.1kHz stereo audio.
const streamBufferSize = 64 * 1024

// StreamSource is a reopenable source of interleaved stereo 16-bit PCM.
// Each frame is laid out as the left sample followed by the right sample.
type StreamSource interface {
	// Open opens the source from the start.
	Open() (io.ReadCloser, error)
	// Len returns the number of bytes per channel.
	Len() int64
}

var _ StreamSource = (*FileSource)(nil)

// FileSource is a StreamSource backed by a stream file.
type FileSource struct {
	path   string
	length int64
}

// OpenFileSource returns a source for the stream file at path.
func OpenFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.Size()%frameSize != 0 {
		return nil, fmt.Errorf("%w: stream file %s does not hold whole frames", ErrUnsupportedFormat, path)
	}

	return &FileSource{
		path:   path,
		length: info.Size() / 2,
	}, nil
}

// Open implements StreamSource.
func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// Len implements StreamSource.
func (s *FileSource) Len() int64 {
	return s.length
}

var _ Reference = (*StreamReference)(nil)

// StreamReference is a Reference to PCM data read from a StreamSource.
// The source is opened lazily on the first read. Seeking backwards or looping
// reopens the source and discards data up to the new position.
//
// Positions must be aligned to whole samples (even byte indices).
type StreamReference struct {
	control

	source StreamSource
	closer io.Closer
	reader *bufio.Reader
	// offset is the per-channel byte index the reader is at. It differs from
	// position after a skip or a seek until the next read.
	offset int64
}

// NewStreamReference returns a stopped reference to the source.
func NewStreamReference(source StreamSource) (*StreamReference, error) {
	length := source.Len()
	if length%2 != 0 {
		return nil, ErrMisaligned
	}

	reference := &StreamReference{
		source: source,
	}
	reference.init(length)
	return reference, nil
}

// SetPosition implements Reference.
func (r *StreamReference) SetPosition(position int64) error {
	if position%2 != 0 {
		return ErrMisaligned
	}
	return r.control.SetPosition(position)
}

// SetLoopPosition implements Reference.
func (r *StreamReference) SetLoopPosition(position int64) error {
	if position%2 != 0 {
		return ErrMisaligned
	}
	return r.control.SetLoopPosition(position)
}

// SkipBytes implements Reference.
// The reader is moved lazily on the next call to NextTwoBytes.
func (r *StreamReference) SkipBytes(num int64) error {
	if num < 0 {
		return ErrNegativeSkip
	}

	if num%2 != 0 {
		return ErrMisaligned
	}

	r.mutex.Lock()
	if r.disposed {
		r.mutex.Unlock()
		return ErrDisposed
	}

	if num == 0 {
		r.mutex.Unlock()
		return nil
	}

	if r.available() == 0 {
		r.mutex.Unlock()
		return ErrEndOfStream
	}

	stopped, _ := r.advance(num)
	r.unlockAndNotify(stopped)
	return nil
}

// NextTwoBytes implements Reference.
// Read errors stop playback and are returned.
func (r *StreamReference) NextTwoBytes(data *[2]int, bigEndian bool) error {
	r.mutex.Lock()
	if r.disposed {
		r.mutex.Unlock()
		return ErrDisposed
	}

	data[0], data[1] = 0, 0
	if r.available() == 0 {
		r.mutex.Unlock()
		return ErrEndOfStream
	}

	var frame [frameSize]byte
	err := r.seek()
	if err == nil {
		_, err = io.ReadFull(r.reader, frame[:])
	}
	if err != nil {
		r.playing = false
		r.closeReader()
		r.mutex.Unlock()
		slog.Warn("Failed to read music stream", slog.Any("error", err))
		return fmt.Errorf("music: failed to read stream: %w", err)
	}
	r.offset += 2

	data[0] = DecodeSample([2]byte{frame[0], frame[1]}, bigEndian)
	data[1] = DecodeSample([2]byte{frame[2], frame[3]}, bigEndian)

	stopped, _ := r.advance(2)
	r.unlockAndNotify(stopped)
	return nil
}

// Dispose implements Reference.
func (r *StreamReference) Dispose() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.dispose(); err != nil {
		return err
	}

	return r.closeReader()
}

// seek moves the reader to the current position, reopening the source if the
// position lies behind the reader.
// Must be called with the mutex held.
func (r *StreamReference) seek() error {
	if r.reader == nil || r.position < r.offset {
		if err := r.closeReader(); err != nil {
			slog.Debug("Failed to close music stream before reopening", slog.Any("error", err))
		}

		slog.Debug("Opening music stream", slog.Int64("position", r.position))
		reader, err := r.source.Open()
		if err != nil {
			return err
		}

		r.closer = reader
		r.reader = bufio.NewReaderSize(reader, streamBufferSize)
		r.offset = 0
	}

	if r.position == r.offset {
		return nil
	}

	skip := (r.position - r.offset) * 2
	if _, err := r.reader.Discard(int(skip)); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	r.offset = r.position
	return nil
}

// closeReader must be called with the mutex held.
func (r *StreamReference) closeReader() error {
	if r.closer == nil {
		return nil
	}

	err := r.closer.Close()
	r.closer = nil
	r.reader = nil
	r.offset = 0
	return err
}
