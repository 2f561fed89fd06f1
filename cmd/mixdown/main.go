package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AlexGustafsson/pcmmix/internal/mixer"
	"github.com/AlexGustafsson/pcmmix/internal/session"
	"github.com/AlexGustafsson/pcmmix/internal/state"
	"github.com/AlexGustafsson/pcmmix/internal/timeutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	StateDirectory string
	SessionPath    string
	OutputPath     string
	Duration       time.Duration
	Preview        bool
	Watch          bool
}

func (o *Options) Validate() error {
	if o.SessionPath == "" {
		return fmt.Errorf("missing required -session")
	}

	if o.OutputPath == "" && !o.Preview {
		return fmt.Errorf("one of -out or -preview is required")
	}

	if o.OutputPath != "" && o.Preview {
		return fmt.Errorf("-out and -preview are mutually exclusive")
	}

	if o.Duration <= 0 {
		return fmt.Errorf("invalid duration %s", o.Duration)
	}

	return nil
}

func run(ctx context.Context, options *Options) error {
	st, err := state.LoadOrInit(options.StateDirectory)
	if err != nil {
		slog.Error("Failed to load state", slog.Any("error", err))
		return err
	}
	config := st.Config

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.LogLevel,
	})))

	description, err := loadDescription(options.SessionPath, config)
	if err != nil {
		slog.Error("Failed to load session", slog.Any("error", err))
		return err
	}

	m := mixer.New(&mixer.Options{
		BigEndian: config.BigEndian,
		Metrics:   st.Metrics,
	})

	slog.Debug("Opening session", slog.String("path", options.SessionPath))
	mix, err := session.Open(description, m, &session.Options{
		BaseDirectory:   filepath.Dir(options.SessionPath),
		SampleRate:      config.SampleRate,
		StreamThreshold: config.StreamThreshold,
		StreamDirectory: config.StreamDirectory,
		Metrics:         st.Metrics,
	})
	if err != nil {
		slog.Error("Failed to open session", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := mix.Close(); err != nil {
			slog.Warn("Failed to close session", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg, ctx := errgroup.WithContext(ctx)

	if config.Prometheus != nil && config.Prometheus.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(st.Metrics)

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", config.Prometheus.Port),
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}

		wg.Go(func() error {
			slog.Info("Serving metrics", slog.String("address", server.Addr))
			err := server.ListenAndServe()
			if err != http.ErrServerClosed {
				return err
			}
			return nil
		})

		wg.Go(func() error {
			<-ctx.Done()
			return server.Close()
		})
	}

	if options.Watch {
		wg.Go(func() error {
			return session.Watch(ctx, options.SessionPath, func(description *session.Description) {
				applyDefaults(description, config)
				if err := mix.Apply(description); err != nil {
					slog.Error("Failed to apply session", slog.Any("error", err))
				}
			})
		})
	}

	wg.Go(func() error {
		// Stop serving metrics and watching once rendering is done
		defer cancel()

		start := time.Now()
		if err := render(ctx, m, config, options); errors.Is(err, context.Canceled) {
			slog.Info("Rendering was canceled, output is incomplete")
			return nil
		} else if err != nil {
			slog.Error("Failed to render mix", slog.Any("error", err))
			return err
		}

		for _, name := range mix.Names() {
			music, _ := mix.Music(name)
			slog.Debug("Track position", slog.String("track", name), slog.String("position", timeutil.FormatTimestamp(music.Position())))
		}

		slog.Info("Rendered mix", slog.String("duration", timeutil.FormatTimestamp(options.Duration)), slog.String("elapsed", timeutil.FormatTimestamp(time.Since(start))))
		return nil
	})

	err = wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadDescription(path string, config *state.Config) (*session.Description, error) {
	description, err := session.Load(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(description, config)
	return description, nil
}

// applyDefaults uses the configured volume unless the session sets its own.
func applyDefaults(description *session.Description, config *state.Config) {
	if description.Volume == nil {
		volume := config.Volume
		description.Volume = &volume
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	var options Options
	flag.StringVar(&options.StateDirectory, "state", "data", "Directory holding the config")
	flag.StringVar(&options.SessionPath, "session", "", "Path to the session to mix")
	flag.StringVar(&options.OutputPath, "out", "", "Path to write the mix to. WAV files are written natively, other formats are encoded using ffmpeg")
	flag.DurationVar(&options.Duration, "duration", 30*time.Second, "Duration of the mix")
	flag.BoolVar(&options.Preview, "preview", false, "Play the mix using ffplay instead of writing it")
	flag.BoolVar(&options.Watch, "watch", false, "Apply changes to the session while mixing")
	flag.Parse()

	if err := options.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// Exit on SIGINT or SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		abort := make(chan os.Signal, 1)
		signal.Notify(abort, syscall.SIGINT, syscall.SIGTERM)
		caught := 0
		for {
			<-abort
			caught++
			if caught == 1 {
				slog.Info("Caught signal, exiting gracefully")
				cancel()
			} else {
				slog.Info("Caught signal, exiting now")
				os.Exit(1)
			}
		}
	}()

	if err := run(ctx, &options); err != nil {
		slog.Error("Program was unsuccessful", slog.Any("error", err))
		os.Exit(1)
	}
}
