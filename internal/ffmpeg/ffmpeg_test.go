package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputArguments(t *testing.T) {
	assert.Equal(t, []string{"-f", "s16le", "-ar", "44100", "-ac", "2", "-i", "pipe:"}, inputArguments(44100, false))
	assert.Equal(t, []string{"-f", "s16be", "-ar", "8000", "-ac", "2", "-i", "pipe:"}, inputArguments(8000, true))
}

func TestEncoder(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	encoder, err := NewEncoder(path, 8000, false)
	require.NoError(t, err)

	// A tenth of a second of silence
	_, err = encoder.Write(make([]byte, 800*4))
	require.NoError(t, err)
	require.NoError(t, encoder.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
