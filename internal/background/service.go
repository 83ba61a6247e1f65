package background

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gokatarajesh/quizgen/internal/metrics"
)

// Source values reported on Image.
const (
	SourcePhoto    = "photo"
	SourceGradient = "gradient"
)

// Attribution credits the photographer of a remote image.
type Attribution struct {
	Photographer    string `json:"photographer,omitempty"`
	PhotographerURL string `json:"photographerUrl,omitempty"`
	UnsplashURL     string `json:"unsplashUrl,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Image is a topic background. Gradient fallbacks carry the gradient
// identifier in both URL fields and no attribution.
type Image struct {
	URL         string       `json:"imageUrl"`
	BlurURL     string       `json:"imageUrlBlur"`
	Attribution *Attribution `json:"attribution"`
	Source      string       `json:"-"`
}

// Fallback returns the deterministic gradient image for topic.
func Fallback(topic string) Image {
	id := Gradient(topic).String()
	return Image{URL: id, BlurURL: id, Source: SourceGradient}
}

// PhotoSearcher finds a photo for a query.
type PhotoSearcher interface {
	Search(ctx context.Context, query string) (Image, error)
}

// ServiceOptions configures background lookups.
type ServiceOptions struct {
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Service resolves topic backgrounds, falling back to a gradient on any failure.
type Service struct {
	searcher PhotoSearcher
	timeout  time.Duration
	metrics  *metrics.Metrics
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewService builds a lookup service. searcher may be nil, in which case every
// lookup resolves to the gradient fallback.
func NewService(searcher PhotoSearcher, logger zerolog.Logger, opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Service{
		searcher: searcher,
		timeout:  timeout,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "background").Logger(),
	}
}

// Lookup never fails. Concurrent lookups for the same topic share one request.
func (s *Service) Lookup(ctx context.Context, topic string) Image {
	topic = strings.TrimSpace(topic)
	if s.searcher == nil || topic == "" {
		s.metrics.ObserveBackground(SourceGradient)
		return Fallback(topic)
	}

	// The flight outlives any single caller, so it runs on a detached context
	// bounded by the service timeout.
	ch := s.group.DoChan(strings.ToLower(topic), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.searcher.Search(flightCtx, topic)
	})

	select {
	case <-ctx.Done():
		s.metrics.ObserveBackground(SourceGradient)
		return Fallback(topic)
	case res := <-ch:
		if res.Err != nil {
			s.logger.Warn().Err(res.Err).Str("topic", topic).Msg("photo lookup failed, using gradient")
			s.metrics.ObserveBackground(SourceGradient)
			return Fallback(topic)
		}
		img := res.Val.(Image)
		img.Source = SourcePhoto
		s.metrics.ObserveBackground(SourcePhoto)
		return img
	}
}
