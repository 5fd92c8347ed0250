// Package web serves the generated feeds over HTTP for calendar
// clients that subscribe directly instead of reading the published
// files.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bookcal/internal/config"
	"bookcal/internal/log"
)

// Server exposes /healthz, / (the generated index) and /feeds/<id>.ics
// from the output directory. When basic auth is configured it applies
// to everything except /healthz.
type Server struct {
	cfg    *config.Config
	outDir string
	mux    *http.ServeMux
}

func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:    cfg,
		outDir: cfg.Feeds.OutDir,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/feeds/", s.handleFeed)
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

// Handler returns the routed handler with auth applied.
func (s *Server) Handler() http.Handler {
	return s.withAuth(s.mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("feed server listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, "index.html", "text/html; charset=utf-8")
}

// handleFeed serves /feeds/<id>.ics. Only flat .ics names are allowed;
// anything with a path separator or other extension is rejected.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	name := path.Base(strings.TrimPrefix(r.URL.Path, "/feeds/"))
	if name == "" || name == "." || !strings.HasSuffix(name, ".ics") {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, name, "text/calendar; charset=utf-8")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name, contentType string) {
	data, err := os.ReadFile(filepath.Join(s.outDir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// withAuth enforces HTTP Basic auth when configured. Comparison is
// constant-time. /healthz stays open for probes.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := s.cfg.BasicAuth
		if auth == nil || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(auth.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(auth.Password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="bookcal"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
