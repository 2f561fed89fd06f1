package music

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/gopxl/beep/v2/wav"
)

// PCM is decoded stereo 16-bit audio with one byte slice per channel.
type PCM struct {
	Left       []byte
	Right      []byte
	SampleRate int
	BigEndian  bool
}

// Frames returns the number of samples per channel.
func (p *PCM) Frames() int {
	return len(p.Left) / 2
}

// Len returns the number of bytes per channel.
func (p *PCM) Len() int64 {
	return int64(len(p.Left))
}

// LoadWAV decodes an uncompressed WAV file into 16-bit PCM in the specified
// byte order. Mono files are duplicated to both channels.
func LoadWAV(r io.Reader, bigEndian bool) (*PCM, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	defer streamer.Close()

	frames := streamer.Len()
	pcm := &PCM{
		Left:       make([]byte, 0, 2*frames),
		Right:      make([]byte, 0, 2*frames),
		SampleRate: int(format.SampleRate),
		BigEndian:  bigEndian,
	}

	var pair [2]byte
	samples := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(samples)
		for _, sample := range samples[:n] {
			left := sample[0]
			right := sample[1]
			if format.NumChannels == 1 {
				right = left
			}

			EncodeSample(pair[:], quantize(left), bigEndian)
			pcm.Left = append(pcm.Left, pair[:]...)
			EncodeSample(pair[:], quantize(right), bigEndian)
			pcm.Right = append(pcm.Right, pair[:]...)
		}
		if !ok {
			break
		}
	}

	if err := streamer.Err(); err != nil {
		return nil, err
	}

	return pcm, nil
}

// LoadWAVFile decodes the WAV file at path. See LoadWAV.
func LoadWAVFile(path string, bigEndian bool) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadWAV(bufio.NewReader(file), bigEndian)
}

// quantize converts a sample in the range [-1, 1] to a signed 16-bit sample.
func quantize(sample float64) int16 {
	value := math.Round(sample * 32768)
	if value > math.MaxInt16 {
		return math.MaxInt16
	} else if value < math.MinInt16 {
		return math.MinInt16
	}
	return int16(value)
}

// WriteStream writes the PCM as interleaved frames, readable by
// StreamReference.
func (p *PCM) WriteStream(w io.Writer) error {
	if len(p.Left) != len(p.Right) {
		return ErrChannelMismatch
	}

	writer := bufio.NewWriter(w)
	for i := 0; i+1 < len(p.Left); i += 2 {
		frame := [frameSize]byte{p.Left[i], p.Left[i+1], p.Right[i], p.Right[i+1]}
		if _, err := writer.Write(frame[:]); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// WriteStreamFile writes the PCM as a stream file in dir and returns a source
// for it. Writes are atomic.
func (p *PCM) WriteStreamFile(dir string, name string) (_ *FileSource, err error) {
	path := filepath.Join(dir, name)

	file, err := os.CreateTemp(dir, name+".tmp")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(file.Name())
		}
	}()

	if err := p.WriteStream(file); err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return nil, err
	}

	return OpenFileSource(path)
}
