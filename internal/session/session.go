package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/AlexGustafsson/pcmmix/internal/mixer"
	"github.com/AlexGustafsson/pcmmix/internal/music"
	"github.com/AlexGustafsson/pcmmix/internal/state"
)

type Options struct {
	// BaseDirectory is used to resolve relative track paths.
	BaseDirectory string
	// SampleRate is the mixer's sample rate. Tracks must match it.
	SampleRate int
	// StreamThreshold is the size in bytes per channel above which tracks are
	// streamed from disk. Zero disables streaming unless a track asks for it.
	StreamThreshold int64
	// StreamDirectory holds stream files. When empty, a temporary directory is
	// created and removed on Close.
	StreamDirectory string
	// Metrics is optional.
	Metrics *state.Metrics
}

// Session is a set of named tracks playing through a mixer.
type Session struct {
	mutex   sync.Mutex
	mixer   *mixer.Mixer
	options Options
	tracks  map[string]*loadedTrack

	streamDirectory     string
	ownsStreamDirectory bool
}

type loadedTrack struct {
	track Track
	music *music.Music
}

// Open loads every track of the description and starts the ones that are not
// paused.
func Open(description *Description, mixer *mixer.Mixer, options *Options) (*Session, error) {
	if options == nil {
		options = &Options{}
	}

	session := &Session{
		mixer:   mixer,
		options: *options,
		tracks:  make(map[string]*loadedTrack),

		streamDirectory: options.StreamDirectory,
	}

	if session.streamDirectory == "" {
		directory, err := os.MkdirTemp("", "pcmmix-")
		if err != nil {
			return nil, err
		}
		session.streamDirectory = directory
		session.ownsStreamDirectory = true
	}

	if err := session.Apply(description); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// Apply updates the session to match the description. Tracks are matched by
// name: new tracks are loaded, missing tracks are unloaded and the settings of
// remaining tracks are changed in place while they play.
func (s *Session) Apply(description *Description) error {
	if err := description.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var errs []error
	if err := s.mixer.SetVolume(description.MixVolume()); err != nil {
		errs = append(errs, err)
	}

	wanted := make(map[string]bool)
	for _, track := range description.Tracks {
		wanted[track.Name] = true
	}

	for name, loaded := range s.tracks {
		if wanted[name] {
			continue
		}

		slog.Debug("Unloading track", slog.String("track", name))
		if err := loaded.music.Unload(); err != nil {
			errs = append(errs, fmt.Errorf("session: failed to unload track %q: %w", name, err))
		}
		delete(s.tracks, name)
	}

	for _, track := range description.Tracks {
		loaded, ok := s.tracks[track.Name]
		if ok && !needsReload(loaded.track, track) {
			if err := s.update(loaded, track); err != nil {
				errs = append(errs, fmt.Errorf("session: failed to update track %q: %w", track.Name, err))
			}
			continue
		}

		if ok {
			slog.Debug("Reloading track", slog.String("track", track.Name))
			if err := loaded.music.Unload(); err != nil {
				errs = append(errs, fmt.Errorf("session: failed to unload track %q: %w", track.Name, err))
			}
			delete(s.tracks, track.Name)
		}

		loaded, err := s.load(track)
		if err != nil {
			errs = append(errs, fmt.Errorf("session: failed to load track %q: %w", track.Name, err))
			continue
		}
		s.tracks[track.Name] = loaded
	}

	return errors.Join(errs...)
}

// Music returns the music of a named track.
func (s *Session) Music(name string) (*music.Music, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	loaded, ok := s.tracks[name]
	if !ok {
		return nil, false
	}
	return loaded.music, true
}

// Names returns the sorted names of the loaded tracks.
func (s *Session) Names() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.tracks))
	for name := range s.tracks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close unloads all tracks.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var errs []error
	for name, loaded := range s.tracks {
		if err := loaded.music.Unload(); err != nil {
			errs = append(errs, err)
		}
		delete(s.tracks, name)
	}

	if s.ownsStreamDirectory {
		if err := os.RemoveAll(s.streamDirectory); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// load must be called with the mutex held.
func (s *Session) load(track Track) (*loadedTrack, error) {
	path := track.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.options.BaseDirectory, path)
	}

	slog.Debug("Loading track", slog.String("track", track.Name), slog.String("path", path))
	pcm, err := music.LoadWAVFile(path, s.mixer.BigEndian())
	if err != nil {
		return nil, err
	}

	if s.options.SampleRate > 0 && pcm.SampleRate != s.options.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d does not match mixer sample rate %d", music.ErrUnsupportedFormat, pcm.SampleRate, s.options.SampleRate)
	}

	stream := s.options.StreamThreshold > 0 && pcm.Len() > s.options.StreamThreshold
	if track.Stream != nil {
		stream = *track.Stream
	}

	var m *music.Music
	if stream {
		source, err := pcm.WriteStreamFile(s.streamDirectory, url.PathEscape(track.Name)+".pcm")
		if err != nil {
			return nil, err
		}

		m, err = music.NewStreamMusic(source, pcm.SampleRate, s.mixer)
		if err != nil {
			return nil, err
		}
	} else {
		m, err = music.NewMemoryMusic(pcm, s.mixer)
		if err != nil {
			return nil, err
		}
	}

	name := track.Name
	metrics := s.options.Metrics
	m.SetOnStopListener(func() {
		slog.Info("Track finished", slog.String("track", name))
		if metrics != nil {
			metrics.TracksFinished.Inc()
		}
	})

	loaded := &loadedTrack{music: m}
	if err := s.update(loaded, track); err != nil {
		m.Unload()
		return nil, err
	}

	slog.Info("Loaded track", slog.String("track", track.Name), slog.Bool("stream", stream), slog.Int("frames", pcm.Frames()))
	return loaded, nil
}

// update applies the track's settings to loaded music.
// Must be called with the mutex held.
func (s *Session) update(loaded *loadedTrack, track Track) error {
	m := loaded.music
	previous := loaded.track
	loaded.track = track

	if err := m.SetVolume(track.TrackVolume()); err != nil {
		return err
	}

	if err := m.SetPan(track.Pan); err != nil {
		return err
	}

	if err := m.SetLoopPositionByDuration(track.LoopPosition); err != nil {
		return err
	}

	if err := m.SetLoop(track.Loop); err != nil {
		return err
	}

	switch {
	case track.Paused && m.Playing():
		return m.Pause()
	case !track.Paused && previous.Name == "":
		// Newly loaded
		return m.Play(track.Loop)
	case !track.Paused && previous.Paused:
		return m.Resume()
	}

	return nil
}

// needsReload returns whether a change to a track requires its data to be
// loaded again.
func needsReload(previous Track, next Track) bool {
	if previous.Path != next.Path {
		return true
	}

	if (previous.Stream == nil) != (next.Stream == nil) {
		return true
	}

	return previous.Stream != nil && *previous.Stream != *next.Stream
}
