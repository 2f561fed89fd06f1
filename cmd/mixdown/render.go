package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexGustafsson/pcmmix/internal/ffmpeg"
	"github.com/AlexGustafsson/pcmmix/internal/mixer"
	"github.com/AlexGustafsson/pcmmix/internal/state"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// contextReader stops reading once its context is done.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}

// contextStreamer stops streaming once its context is done.
type contextStreamer struct {
	ctx      context.Context
	streamer beep.Streamer
}

func (s *contextStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.ctx.Err() != nil {
		return 0, false
	}
	return s.streamer.Stream(samples)
}

func (s *contextStreamer) Err() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.streamer.Err()
}

// render writes options.Duration worth of mixed audio to the configured
// output.
func render(ctx context.Context, m *mixer.Mixer, config *state.Config, options *Options) error {
	frames := int64(options.Duration.Seconds() * float64(config.SampleRate))

	if options.Preview {
		slog.Info("Previewing mix", slog.Int64("frames", frames))
		player, err := ffmpeg.NewPlayer(config.SampleRate, config.BigEndian)
		if err != nil {
			return fmt.Errorf("failed to start player: %w", err)
		}
		return copyTo(ctx, player, m, frames)
	}

	if strings.EqualFold(filepath.Ext(options.OutputPath), ".wav") {
		slog.Info("Writing mix", slog.String("path", options.OutputPath), slog.Int64("frames", frames))
		return writeWAV(ctx, options.OutputPath, m, config.SampleRate, int(frames))
	}

	slog.Info("Encoding mix", slog.String("path", options.OutputPath), slog.Int64("frames", frames))
	encoder, err := ffmpeg.NewEncoder(options.OutputPath, config.SampleRate, config.BigEndian)
	if err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}
	return copyTo(ctx, encoder, m, frames)
}

// copyTo copies frames from the mixer to process, closing it when done.
func copyTo(ctx context.Context, process *ffmpeg.Process, m *mixer.Mixer, frames int64) error {
	reader := &contextReader{
		ctx:    ctx,
		reader: io.LimitReader(m, frames*mixer.FrameSize),
	}

	if _, err := io.Copy(process, reader); err != nil {
		process.Kill()
		process.Close()
		return err
	}

	return process.Close()
}

func writeWAV(ctx context.Context, path string, m *mixer.Mixer, sampleRate int, frames int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	streamer := &contextStreamer{
		ctx:      ctx,
		streamer: mixer.NewStreamer(m),
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}

	if err := wav.Encode(file, beep.Take(frames, streamer), format); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return file.Close()
}
