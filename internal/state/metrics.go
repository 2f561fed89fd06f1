package state

import "github.com/prometheus/client_golang/prometheus"

var _ prometheus.Collector = (*Metrics)(nil)

type Metrics struct {
	ReferencesRegistered prometheus.Counter
	ActiveReferences     prometheus.Gauge
	FramesMixed          prometheus.Counter
	ClippedSamples       prometheus.Counter
	TracksFinished       prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		ReferencesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pcmmix",
			Subsystem: "mixer",
			Name:      "references_registered_total",
			Help:      "Total number of music references registered with the mixer",
		}),
		ActiveReferences: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pcmmix",
			Subsystem: "mixer",
			Name:      "active_references",
			Help:      "Number of music references currently registered with the mixer",
		}),
		FramesMixed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pcmmix",
			Subsystem: "mixer",
			Name:      "frames_mixed_total",
			Help:      "Total number of stereo frames produced by the mixer",
		}),
		ClippedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pcmmix",
			Subsystem: "mixer",
			Name:      "clipped_samples_total",
			Help:      "Total number of mixed samples clipped to the 16-bit range",
		}),
		TracksFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pcmmix",
			Subsystem: "session",
			Name:      "tracks_finished_total",
			Help:      "Total number of tracks that played to the end without looping",
		}),
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(c chan<- prometheus.Metric) {
	m.ReferencesRegistered.Collect(c)
	m.ActiveReferences.Collect(c)
	m.FramesMixed.Collect(c)
	m.ClippedSamples.Collect(c)
	m.TracksFinished.Collect(c)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(d chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(m, d)
}
