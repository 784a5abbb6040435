// Package http provides the local HTTP server that receives the Spotify
// authorization callback and exposes run metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"albumshuffle/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	APIRequestsTotal  *prometheus.CounterVec
	PlaylistsTotal    *prometheus.CounterVec
	GroupsTotal       *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	PublishedTracks   prometheus.Gauge
	PublishedDuration prometheus.Gauge
}

func NewServer(config *core.ServerConfig, callback *OAuthHandler, logger *zap.Logger) *Server {
	metrics := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "albumshuffle_api_requests_total",
				Help: "Total number of Spotify API requests",
			},
			[]string{"endpoint"},
		),
		PlaylistsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "albumshuffle_playlists_total",
				Help: "Playlists encountered while loading the library",
			},
			[]string{"status"},
		),
		GroupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "albumshuffle_groups_total",
				Help: "Track groups produced while loading the library",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "albumshuffle_stage_duration_seconds",
				Help:    "Time spent per pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		PublishedTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "albumshuffle_published_tracks",
				Help: "Number of tracks in the published playlist",
			},
		),
		PublishedDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "albumshuffle_published_duration_seconds",
				Help: "Total play time of the published playlist",
			},
		),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.APIRequestsTotal,
		metrics.PlaylistsTotal,
		metrics.GroupsTotal,
		metrics.StageDuration,
		metrics.PublishedTracks,
		metrics.PublishedDuration,
	)

	mux := http.NewServeMux()

	mux.Handle("/callback", callback)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","service":"albumshuffle"}`)); err != nil {
			logger.Debug("Failed to write health response", zap.Error(err))
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("albumshuffle\n\n/callback  Spotify authorization callback\n/healthz   health check\n/metrics   Prometheus metrics\n")); err != nil {
			logger.Debug("Failed to write index response", zap.Error(err))
		}
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) RecordAPIRequest(endpoint string) {
	s.metrics.APIRequestsTotal.WithLabelValues(endpoint).Inc()
}

func (s *Server) RecordPlaylist(status string) {
	s.metrics.PlaylistsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordGroup(status string) {
	s.metrics.GroupsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordStageDuration(stage string, duration time.Duration) {
	s.metrics.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (s *Server) SetPublished(trackCount int, duration time.Duration) {
	s.metrics.PublishedTracks.Set(float64(trackCount))
	s.metrics.PublishedDuration.Set(duration.Seconds())
}
