package server

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/mirror"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

// Config holds server configuration
type Config struct {
	// Settings carries the listen address, guards and limits
	Settings config.ServerConfig

	// Manager owns the active sandbox session
	Manager *session.Manager

	// Orchestrator applies AI responses
	Orchestrator *reconcile.Orchestrator

	// Installer runs install-packages requests. Defaults to an installer
	// that does not restart the dev server.
	Installer *reconcile.Installer

	// Mirror receives files written by load-project
	Mirror *mirror.Mirror

	// History records commands and loads. Nil disables recording.
	History audit.Recorder

	// HealthClient probes the dev server for sandbox-status
	HealthClient *http.Client

	// Logger for server operations
	Logger *slog.Logger

	// Now is the clock used by the rate limiter and manifests
	Now func() time.Time
}

// Server is the HTTP API in front of the session manager
type Server struct {
	config   *Config
	logger   *slog.Logger
	limiter  *rateLimiter
	handler  http.Handler
	server   *http.Server
	upgrader websocket.Upgrader

	// runs tracks reconciliation runs still writing to a stream
	runs sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start or Serve.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("server requires a session manager")
	}
	if cfg.Orchestrator == nil {
		cfg.Orchestrator = &reconcile.Orchestrator{Logger: cfg.Logger}
	}
	if cfg.Installer == nil {
		cfg.Installer = &reconcile.Installer{Logger: cfg.Logger}
	}
	if cfg.History == nil {
		cfg.History = audit.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Settings.MaxCommandLength <= 0 {
		cfg.Settings.MaxCommandLength = config.DefaultMaxCommandLen
	}

	s := &Server{
		config: cfg,
		logger: logging.OrDefault(cfg.Logger).With("component", "server"),
	}
	if cfg.Settings.RateLimitRequests > 0 {
		window := cfg.Settings.RateLimitWindow.Duration
		if window <= 0 {
			window = time.Minute
		}
		s.limiter = newRateLimiter(cfg.Settings.RateLimitRequests, window, cfg.Now)
	}
	s.handler = s.routes()

	s.server = &http.Server{
		Addr:         cfg.Settings.Listen,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // streams clear their own deadline
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/apply-ai-code-stream", s.limited(s.handleApplyStream))
	mux.HandleFunc("GET /api/apply-ai-code-ws", s.limited(s.handleApplyWebsocket))

	mux.HandleFunc("POST /api/create-ai-sandbox", s.limited(s.handleCreateSandbox))
	mux.HandleFunc("POST /api/kill-sandbox", s.limited(s.handleKillSandbox))
	mux.HandleFunc("GET /api/sandbox-status", s.handleSandboxStatus)
	mux.HandleFunc("POST /api/run-command", s.limited(s.handleRunCommand))
	mux.HandleFunc("POST /api/restart-vite", s.limited(s.handleRestartVite))

	mux.HandleFunc("POST /api/install-packages", s.limited(s.handleInstallPackages))
	mux.HandleFunc("POST /api/detect-and-install-packages", s.limited(s.handleDetectAndInstall))

	mux.HandleFunc("GET /api/get-sandbox-files", s.handleSandboxFiles)
	mux.HandleFunc("POST /api/get-sandbox-files", s.handleSandboxFiles)
	mux.HandleFunc("POST /api/load-project", s.limited(s.handleLoadProject))

	mux.HandleFunc("GET /api/conversation-state", s.handleConversationState)
	mux.HandleFunc("POST /api/conversation-state", s.limited(s.handleConversationAction))
	mux.HandleFunc("DELETE /api/conversation-state", s.limited(s.handleConversationClear))
	mux.HandleFunc("GET /api/sandbox-history", s.handleSandboxHistory)

	return s.logRequests(s.guardLocalhost(mux))
}

// Handler returns the API handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start listens on the configured address and serves until Stop or
// Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Serve serves on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting server", "addr", l.Addr().String())
	return s.server.Serve(l)
}

// Shutdown stops accepting connections and waits for open requests and
// in-flight reconciliation runs until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	s.close()
	return err
}

// Stop closes the server immediately
func (s *Server) Stop() error {
	err := s.server.Close()
	s.close()
	return err
}

// close releases resources owned by the server. Safe to call repeatedly.
func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.stop()
	}
}

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// guardLocalhost rejects requests whose Host header is not a loopback name.
func (s *Server) guardLocalhost(next http.Handler) http.Handler {
	if !s.config.Settings.LocalhostOnly {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !localHosts[hostname(r.Host)] {
			s.logger.Warn("rejected non-local request", "host", r.Host, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusForbidden, failure{Error: "Forbidden: this API is only accessible from localhost."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hostname(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// limited applies the rate limiter to h.
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r.RemoteAddr)
		if ok, retry := s.limiter.allow(key); !ok {
			seconds := int((retry + time.Second - 1) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			s.logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSON(w, http.StatusTooManyRequests, failure{Error: "Rate limit exceeded. Try again later."})
			return
		}
		h(w, r)
	}
}

func clientKey(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"duration", time.Since(start),
			"remote", r.RemoteAddr)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code.
// It passes through flushing and hijacking so streams and websockets work
// behind it.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := lw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
