package state

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// SampleRate is the rate of the mixed output. Sources must match it.
	SampleRate int `yaml:"sampleRate" env:"PCMMIX_SAMPLE_RATE"`
	// BigEndian controls the byte order of PCM data held by references and
	// produced by the mixer.
	BigEndian bool `yaml:"bigEndian" env:"PCMMIX_BIG_ENDIAN"`
	// Volume is the global mixer volume.
	Volume float64 `yaml:"volume" env:"PCMMIX_VOLUME"`
	// StreamThreshold is the size in bytes per channel above which music is
	// streamed from disk rather than held in memory. Zero disables streaming.
	StreamThreshold int64 `yaml:"streamThreshold" env:"PCMMIX_STREAM_THRESHOLD"`
	// StreamDirectory holds stream files. Defaults to a temporary directory.
	StreamDirectory string `yaml:"streamDirectory,omitempty" env:"PCMMIX_STREAM_DIRECTORY"`

	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`

	LogLevel slog.Level `yaml:"logLevel" env:"PCMMIX_LOG_LEVEL"`
}

type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled" env:"PCMMIX_PROMETHEUS_ENABLED"`
	Port    uint16 `yaml:"port" env:"PCMMIX_PROMETHEUS_PORT"`
}

// DefaultConfig returns the default config.
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 44100,
		BigEndian:  false,
		Volume:     1.0,
		// Roughly 12s of 44.1kHz audio
		StreamThreshold: 1024 * 1024,

		Prometheus: &PrometheusConfig{
			Enabled: false,
			Port:    8080,
		},

		LogLevel: slog.LevelInfo,
	}
}

// PopulateFromEnvironment populates the config with values from environment
// variables.
func (c *Config) PopulateFromEnvironment() error {
	if c.Prometheus == nil {
		c.Prometheus = &PrometheusConfig{}
	}
	return env.Parse(c)
}

// Validate returns an error if the config cannot be used.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: invalid sample rate %d", c.SampleRate)
	}

	if math.IsNaN(c.Volume) || c.Volume < 0 {
		return fmt.Errorf("config: invalid volume %g", c.Volume)
	}

	if c.StreamThreshold < 0 {
		return fmt.Errorf("config: invalid stream threshold %d", c.StreamThreshold)
	}

	return nil
}

// CreateConfigIfNotExists makes sure that a config file exists. If it doesn't,
// it is created and populated with the default config.
func CreateConfigIfNotExists(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return nil
	}

	config := DefaultConfig()
	return config.Store(path)
}

// ReadConfig reads a config file from the specified path.
func ReadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Store stores the config in the specified path.
// Writes are atomic.
func (c *Config) Store(path string) (err error) {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(file.Name())
		}
	}()

	encoder := yaml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}
