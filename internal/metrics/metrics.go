package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	backgroundLookups  *prometheus.CounterVec
	quizzesCompleted   *prometheus.CounterVec
	quizScores         prometheus.Histogram
	leaderboardSize    prometheus.Gauge
}

// New registers collectors on reg. Pass prometheus.DefaultRegisterer to expose
// them through promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_generations_total",
				Help: "Question generation attempts by provider and outcome",
			},
			[]string{"provider", "outcome"}, // outcome: ok/missing_input/timeout/invalid_shape/network
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizgen_generation_duration_seconds",
				Help:    "Time spent waiting on the text generator",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),
		backgroundLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_background_lookups_total",
				Help: "Background lookups by source",
			},
			[]string{"source"}, // photo/gradient
		),
		quizzesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_quizzes_completed_total",
				Help: "Completed quizzes by completion reason",
			},
			[]string{"reason", "difficulty"},
		),
		quizScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quizgen_quiz_score_percent",
				Help:    "Distribution of final quiz scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		leaderboardSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quizgen_leaderboard_entries",
				Help: "Entries currently held on the leaderboard",
			},
		),
	}
}

func (m *Metrics) ObserveGeneration(provider, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(provider, outcome).Inc()
	m.generationDuration.WithLabelValues(provider).Observe(took.Seconds())
}

func (m *Metrics) ObserveBackground(source string) {
	if m == nil {
		return
	}
	m.backgroundLookups.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveCompletion(reason, difficulty string, score int) {
	if m == nil {
		return
	}
	m.quizzesCompleted.WithLabelValues(reason, difficulty).Inc()
	m.quizScores.Observe(float64(score))
}

func (m *Metrics) SetLeaderboardSize(n int) {
	if m == nil {
		return
	}
	m.leaderboardSize.Set(float64(n))
}
