package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/logging"
)

// Config holds the server configuration
type Config struct {
	Address  string
	ImageDir string
	Defaults environment.Defaults
	Source   environment.Source

	// Registry receives the server metrics; a private registry when nil
	Registry *prometheus.Registry

	// CheckOrigin overrides the websocket origin check; same-origin when nil
	CheckOrigin func(r *http.Request) bool
}

// Server serves environment steps to web front ends over websockets
type Server struct {
	config   *Config
	upgrader websocket.Upgrader
	metrics  *Metrics
	registry *prometheus.Registry
	http     *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Source == nil {
		return nil, environment.ErrNoSource
	}
	if _, err := environment.NewState(nil, config.Defaults); err != nil {
		return nil, fmt.Errorf("invalid defaults: %w", err)
	}

	reg := config.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		metrics:  NewMetrics(reg),
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		ctx:         ctx,
		cancel:      cancel,
		activeConns: make(map[string]*websocket.Conn),
	}
	return s, nil
}

// Handler returns the HTTP handler: /ws, /metrics and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	logging.Info("Starting environment step server",
		zap.String("addr", listener.Addr().String()),
		zap.String("image_dir", s.config.ImageDir),
	)

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleWebSocket upgrades the request and runs one step session on it
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logging.Error("Invalid WebSocket upgrade request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	opts := environment.Options{
		Defaults: s.config.Defaults,
		ImageDir: s.config.ImageDir,
		Source:   s.config.Source,
	}
	sess, err := newSession(conn, opts, s.metrics)
	if err != nil {
		logging.Error("Failed to create step", zap.Error(err))
		_ = conn.Close()
		return
	}

	remoteAddr := sess.remoteAddr
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	s.metrics.sessionOpened()
	s.wg.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		s.metrics.sessionClosed()
		s.wg.Done()
	}()

	if err := sess.run(s.ctx); err != nil {
		logging.Error("WebSocket connection error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	// Hijacked websocket connections are not closed by http.Server.Shutdown
	s.cancel()
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
