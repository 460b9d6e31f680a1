// Package server exposes the transcription pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgpai22/scribe/internal/logging"
	"github.com/mgpai22/scribe/internal/metrics"
	"github.com/mgpai22/scribe/internal/pipeline"
)

type Options struct {
	Addr           string
	UploadDir      string
	MaxUploadBytes int64
	// RecognizeTimeout bounds one transcription; zero means no limit.
	RecognizeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	// LoadErr is the recognizer initialisation failure, if any. Uploads are
	// refused while it is set.
	LoadErr error
}

type Server struct {
	http     *http.Server
	pipeline *pipeline.Pipeline
	opts     Options
	log      *logging.Logger

	// the recognizer handles one job at a time
	recognizeMu sync.Mutex
}

func New(p *pipeline.Pipeline, opts Options, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		pipeline: p,
		opts:     opts,
		log:      log.With("component", "http"),
	}
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recoverer(s.log))
	r.Use(Logger(s.log))
	r.Use(metrics.InstrumentHandler)

	r.Post("/upload", s.handleUpload)
	r.Get("/waveform-data/{filename}", s.handleWaveformData)
	r.Get("/subtitles/{filename}", s.handleSubtitle)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start() error {
	s.log.Infow("http server starting", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("http server shutting down")
	return s.http.Shutdown(ctx)
}
