// SPDX-License-Identifier: MIT

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"soundcheck/internal/audiometry"
	"soundcheck/internal/config"
	"soundcheck/internal/log"
	"soundcheck/internal/transport/udp"
)

// Server is the HTTP face of the screening engine. It owns the
// spectrum hub, the band relay feeding it, and the optional UDP
// publisher polling the relay.
type Server struct {
	cfg       *config.Config
	scorer    *audiometry.Scorer
	hub       *SpectrumHub
	relay     *bandRelay
	udpSender *udp.Sender
	udpPub    *udp.Publisher
	httpSrv   *http.Server
}

// NewServer wires the handler stack. When cfg.Server.UDPMonitor is set
// the UDP publisher is created too; it starts with Run.
func NewServer(cfg *config.Config, scorer *audiometry.Scorer) (*Server, error) {
	interval := time.Duration(cfg.Spectrum.PublishIntervalMs) * time.Millisecond
	hub := NewSpectrumHub(interval)

	s := &Server{
		cfg:    cfg,
		scorer: scorer,
		hub:    hub,
		relay:  newBandRelay(hub),
	}

	if cfg.Server.UDPMonitor != "" {
		sender, err := udp.NewSender(cfg.Server.UDPMonitor)
		if err != nil {
			return nil, fmt.Errorf("creating UDP monitor: %w", err)
		}
		pub, err := udp.NewPublisher(interval, sender, s.relay)
		if err != nil {
			sender.Close()
			return nil, fmt.Errorf("creating UDP monitor: %w", err)
		}
		s.udpSender = sender
		s.udpPub = pub
	}

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler returns the full middleware-wrapped route table. Split out
// from Run so tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /model/info", s.handleModelInfo)
	mux.HandleFunc("POST /audio/generate", s.handleGenerateTone)
	mux.HandleFunc("GET /audio/sample", s.handleAudioSample)
	mux.HandleFunc("POST /test/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /test/frequencies", s.handleTestFrequencies)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /simulate", s.handleSimulate)
	mux.HandleFunc("GET /simulate/profiles", s.handleProfiles)
	mux.HandleFunc("GET /ws/spectrum", s.hub.HandleWS)

	return logRequests(withCORS(mux))
}

// Run serves until ctx is canceled, then drains connections within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if s.udpPub != nil {
		s.udpPub.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopMonitors()
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	log.Infof("shutting down HTTP server")
	timeout := time.Duration(s.cfg.Server.ShutdownTimeoutS) * time.Second
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpSrv.Shutdown(sctx)
	s.hub.Close()
	s.stopMonitors()
	if err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

func (s *Server) stopMonitors() {
	if s.udpPub != nil {
		s.udpPub.Stop()
	}
	if s.udpSender != nil {
		s.udpSender.Close()
	}
}

// withCORS answers preflights and marks every response as
// cross-origin-safe so browser frontends on other ports can call the
// API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for the request log. It
// forwards Hijack so the WebSocket upgrade still works through the
// middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}
