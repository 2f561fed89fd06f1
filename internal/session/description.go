package session

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Description describes a mix of tracks.
type Description struct {
	// Volume is the global mixer volume. Defaults to 1.
	Volume *float64 `yaml:"volume,omitempty"`
	Tracks []Track  `yaml:"tracks"`
}

// Track describes a single piece of music in a mix.
type Track struct {
	// Name uniquely identifies the track within the mix.
	Name string `yaml:"name"`
	// Path is the path to an uncompressed WAV file. Relative paths are
	// resolved against the directory of the description.
	Path string `yaml:"path"`
	// Volume defaults to 1.
	Volume *float64 `yaml:"volume,omitempty"`
	Pan    float64  `yaml:"pan,omitempty"`
	Loop   bool     `yaml:"loop,omitempty"`
	// LoopPosition is the offset looping resumes from.
	LoopPosition time.Duration `yaml:"loopPosition,omitempty"`
	// Paused tracks are loaded but not started.
	Paused bool `yaml:"paused,omitempty"`
	// Stream forces streaming from disk on or off. When unset, the configured
	// threshold decides.
	Stream *bool `yaml:"stream,omitempty"`
}

// TrackVolume returns the track's volume, defaulting to 1.
func (t Track) TrackVolume() float64 {
	if t.Volume == nil {
		return 1.0
	}
	return *t.Volume
}

// MixVolume returns the global volume, defaulting to 1.
func (d *Description) MixVolume() float64 {
	if d.Volume == nil {
		return 1.0
	}
	return *d.Volume
}

// Load reads a description from the specified path.
func Load(path string) (*Description, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads and validates a description.
func Decode(r io.Reader) (*Description, error) {
	var description Description

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&description); err != nil && err != io.EOF {
		return nil, err
	}

	if err := description.Validate(); err != nil {
		return nil, err
	}

	return &description, nil
}

// Validate returns an error if the description cannot be mixed.
func (d *Description) Validate() error {
	if !validVolume(d.MixVolume()) {
		return fmt.Errorf("session: invalid volume %g", d.MixVolume())
	}

	names := make(map[string]bool)
	for i, track := range d.Tracks {
		if track.Name == "" {
			return fmt.Errorf("session: track %d has no name", i)
		}

		if names[track.Name] {
			return fmt.Errorf("session: duplicate track %q", track.Name)
		}
		names[track.Name] = true

		if track.Path == "" {
			return fmt.Errorf("session: track %q has no path", track.Name)
		}

		if !validVolume(track.TrackVolume()) {
			return fmt.Errorf("session: track %q has invalid volume %g", track.Name, track.TrackVolume())
		}

		if math.IsNaN(track.Pan) || track.Pan < -1.0 || track.Pan > 1.0 {
			return fmt.Errorf("session: track %q has pan %g outside of [-1, 1]", track.Name, track.Pan)
		}

		if track.LoopPosition < 0 {
			return fmt.Errorf("session: track %q has negative loop position", track.Name)
		}
	}

	return nil
}

func validVolume(volume float64) bool {
	return !math.IsNaN(volume) && !math.IsInf(volume, 0) && volume >= 0
}
