package mixer

import (
	"io"
	"sync"
	"testing"

	"github.com/AlexGustafsson/pcmmix/internal/music"
	"github.com/AlexGustafsson/pcmmix/internal/state"
	"github.com/gopxl/beep/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channel returns channel data for the samples in the specified byte order.
func channel(bigEndian bool, values ...int16) []byte {
	data := make([]byte, 2*len(values))
	for i, value := range values {
		music.EncodeSample(data[2*i:], value, bigEndian)
	}
	return data
}

// frames decodes interleaved output into pairs of samples.
func frames(data []byte, bigEndian bool) [][2]int {
	result := make([][2]int, 0, len(data)/FrameSize)
	for i := 0; i+FrameSize <= len(data); i += FrameSize {
		result = append(result, [2]int{
			music.DecodeSample([2]byte{data[i], data[i+1]}, bigEndian),
			music.DecodeSample([2]byte{data[i+2], data[i+3]}, bigEndian),
		})
	}
	return result
}

func playing(t *testing.T, bigEndian bool, left []int16, right []int16) *music.MemoryReference {
	t.Helper()

	reference, err := music.NewMemoryReference(channel(bigEndian, left...), channel(bigEndian, right...))
	require.NoError(t, err)
	require.NoError(t, reference.SetPlaying(true))
	return reference
}

func TestRead(t *testing.T) {
	for _, bigEndian := range []bool{true, false} {
		mixer := New(&Options{BigEndian: bigEndian})
		mixer.Register(playing(t, bigEndian, []int16{100, 200}, []int16{-100, -200}))
		mixer.Register(playing(t, bigEndian, []int16{1, 2, 3}, []int16{4, 5, 6}))

		buffer := make([]byte, 4*FrameSize)
		n, err := mixer.Read(buffer)
		require.NoError(t, err)
		assert.Equal(t, len(buffer), n)

		expected := [][2]int{{101, -96}, {202, -195}, {3, 6}, {0, 0}}
		assert.Equal(t, expected, frames(buffer, bigEndian), "big endian: %v", bigEndian)
		assert.Equal(t, 0, mixer.Len(), "done references are unregistered")
	}
}

func TestReadPartialFrame(t *testing.T) {
	mixer := New(nil)

	n, err := mixer.Read(make([]byte, 3))
	assert.ErrorIs(t, err, io.ErrShortBuffer)
	assert.Equal(t, 0, n)

	n, err = mixer.Read(make([]byte, 7))
	assert.NoError(t, err)
	assert.Equal(t, FrameSize, n)
}

func TestReadVolumeAndPan(t *testing.T) {
	testCases := []struct {
		Name     string
		Volume   float64
		Global   float64
		Pan      float64
		Expected [2]int
	}{
		{Name: "unity", Volume: 1, Global: 1, Pan: 0, Expected: [2]int{1000, 1000}},
		{Name: "half volume", Volume: 0.5, Global: 1, Pan: 0, Expected: [2]int{500, 500}},
		{Name: "half global volume", Volume: 1, Global: 0.5, Pan: 0, Expected: [2]int{500, 500}},
		{Name: "full left", Volume: 1, Global: 1, Pan: -1, Expected: [2]int{1000, 0}},
		{Name: "full right", Volume: 1, Global: 1, Pan: 1, Expected: [2]int{0, 1000}},
		{Name: "slightly left", Volume: 1, Global: 1, Pan: -0.25, Expected: [2]int{1000, 750}},
		{Name: "slightly right", Volume: 1, Global: 1, Pan: 0.25, Expected: [2]int{750, 1000}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			mixer := New(nil)
			require.NoError(t, mixer.SetVolume(testCase.Global))

			reference := playing(t, false, []int16{1000}, []int16{1000})
			require.NoError(t, reference.SetVolume(testCase.Volume))
			require.NoError(t, reference.SetPan(testCase.Pan))
			mixer.Register(reference)

			buffer := make([]byte, FrameSize)
			_, err := mixer.Read(buffer)
			require.NoError(t, err)
			assert.Equal(t, [][2]int{testCase.Expected}, frames(buffer, false))
		})
	}
}

// countingReference counts how often the gains of a reference are read.
type countingReference struct {
	*music.MemoryReference
	volumeReads int
	panReads    int
}

func (r *countingReference) Volume() float64 {
	r.volumeReads++
	return r.MemoryReference.Volume()
}

func (r *countingReference) Pan() float64 {
	r.panReads++
	return r.MemoryReference.Pan()
}

func TestReadGainsOncePerRead(t *testing.T) {
	mixer := New(nil)
	reference := &countingReference{MemoryReference: playing(t, false, []int16{1000, 1000, 1000, 1000}, []int16{1000, 1000, 1000, 1000})}
	require.NoError(t, reference.SetVolume(0.5))
	require.NoError(t, reference.SetPan(-1))
	mixer.Register(reference)

	buffer := make([]byte, 4*FrameSize)
	_, err := mixer.Read(buffer)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{500, 0}, {500, 0}, {500, 0}, {500, 0}}, frames(buffer, false))
	assert.Equal(t, 1, reference.volumeReads)
	assert.Equal(t, 1, reference.panReads)
}

func TestReadClips(t *testing.T) {
	metrics := state.NewMetrics()
	mixer := New(&Options{Metrics: metrics})
	mixer.Register(playing(t, false, []int16{30000}, []int16{-30000}))
	mixer.Register(playing(t, false, []int16{30000}, []int16{-30000}))

	buffer := make([]byte, FrameSize)
	_, err := mixer.Read(buffer)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{32767, -32768}}, frames(buffer, false))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ClippedSamples))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesMixed))
}

func TestReadSkipsPaused(t *testing.T) {
	mixer := New(nil)
	reference := playing(t, false, []int16{1, 2}, []int16{1, 2})
	require.NoError(t, reference.SetPlaying(false))
	mixer.Register(reference)

	buffer := make([]byte, 2*FrameSize)
	_, err := mixer.Read(buffer)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{0, 0}, {0, 0}}, frames(buffer, false))
	assert.Equal(t, int64(0), reference.Position())
	assert.Equal(t, 1, mixer.Len(), "paused references are kept")
}

func TestReadLoops(t *testing.T) {
	mixer := New(nil)
	reference := playing(t, false, []int16{1, 2}, []int16{3, 4})
	require.NoError(t, reference.SetLoop(true))
	mixer.Register(reference)

	buffer := make([]byte, 5*FrameSize)
	_, err := mixer.Read(buffer)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 4}, {1, 3}, {2, 4}, {1, 3}}, frames(buffer, false))
	assert.Equal(t, 1, mixer.Len())
}

func TestReadDropsDisposed(t *testing.T) {
	mixer := New(nil)
	reference := playing(t, false, []int16{1, 2}, []int16{3, 4})
	mixer.Register(reference)
	require.NoError(t, reference.Dispose())

	buffer := make([]byte, FrameSize)
	_, err := mixer.Read(buffer)
	require.NoError(t, err)
	assert.Equal(t, 0, mixer.Len())
}

func TestRegister(t *testing.T) {
	metrics := state.NewMetrics()
	mixer := New(&Options{Metrics: metrics})

	reference := playing(t, false, []int16{1}, []int16{1})
	mixer.Register(reference)
	mixer.Register(reference)
	assert.Equal(t, 1, mixer.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReferencesRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveReferences))

	mixer.Unregister(reference)
	assert.Equal(t, 0, mixer.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveReferences))

	mixer.Register(reference)
	mixer.Register(playing(t, false, []int16{1}, []int16{1}))
	mixer.Clear()
	assert.Equal(t, 0, mixer.Len())
}

func TestSetVolume(t *testing.T) {
	mixer := New(nil)
	assert.Equal(t, 1.0, mixer.Volume())
	require.NoError(t, mixer.SetVolume(0.1))
	assert.Equal(t, 0.1, mixer.Volume())
	assert.ErrorIs(t, mixer.SetVolume(-0.1), music.ErrInvalidVolume)
	assert.Equal(t, 0.1, mixer.Volume())
}

func TestReadConcurrentControl(t *testing.T) {
	mixer := New(nil)

	values := make([]int16, 4096)
	reference := playing(t, false, values, values)
	require.NoError(t, reference.SetLoop(true))
	mixer.Register(reference)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			reference.SetPan(float64(i%3) - 1)
			reference.SetVolume(float64(i % 2))
			reference.SetPosition(int64(i%100) * 2)
		}
	}()

	buffer := make([]byte, 256*FrameSize)
	for i := 0; i < 100; i++ {
		_, err := mixer.Read(buffer)
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestStreamer(t *testing.T) {
	mixer := New(&Options{BigEndian: true})
	mixer.Register(playing(t, true, []int16{16384, -32768}, []int16{-16384, 0}))

	streamer := NewStreamer(mixer)
	samples := make([][2]float64, 3)
	n, ok := streamer.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][2]float64{{0.5, -0.5}, {-1, 0}, {0, 0}}, samples)
	assert.NoError(t, streamer.Err())

	// Limited streams end
	taken := beep.Take(2, streamer)
	n, ok = taken.Stream(samples)
	assert.Equal(t, 2, n)
	assert.True(t, ok)
	n, ok = taken.Stream(samples)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestStreamerReadError(t *testing.T) {
	streamer := &Streamer{reader: failingReader{}}

	samples := make([][2]float64, 2)
	n, ok := streamer.Stream(samples)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	assert.ErrorIs(t, streamer.Err(), io.ErrUnexpectedEOF)

	// The stream stays ended
	n, ok = streamer.Stream(samples)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
}
