// Package http serves the text-to-speech API.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/ekisa-team/ttsapi/internal/metrics"
	"github.com/ekisa-team/ttsapi/internal/model"
	"github.com/ekisa-team/ttsapi/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	maxFormBytes    = 1 << 20
)

// Options wires the services behind the HTTP surface.
type Options struct {
	Addr    string
	Version string
	Synth   *model.Synthesizer
	TTS     *service.TTS
	Store   *service.ModelStore
	// Metrics is optional. When set, requests are counted and /metrics is served.
	Metrics *metrics.Metrics
}

// Server is the HTTP server of the API.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// New registers every route and returns a server ready to start.
func New(opts Options) *Server {
	mux := http.NewServeMux()

	api := humago.New(mux, huma.DefaultConfig("ttsapi", opts.Version))

	NewHealthHandler(api)
	NewModelsHandler(api, opts.Store, opts.Synth)
	NewRegistryHandler(api, opts.Synth)
	NewTTSHandler(api, opts.TTS)

	var handler http.Handler = formToQuery(mux)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
		handler = opts.Metrics.Middleware(handler)
	}

	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}

// formToQuery moves url-encoded form fields into the query string, so routes
// read them the same way on every method. Query values win over body values.
func formToQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "application/x-www-form-urlencoded" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBytes))
		_ = r.Body.Close()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "form body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "cannot read form body", http.StatusBadRequest)
			return
		}

		form, err := url.ParseQuery(string(data))
		if err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}

		query := r.URL.Query()
		for key, values := range form {
			if !query.Has(key) {
				query[key] = values
			}
		}

		r.URL.RawQuery = query.Encode()
		r.Body = http.NoBody
		r.ContentLength = 0
		r.Header.Del("Content-Type")

		next.ServeHTTP(w, r)
	})
}
