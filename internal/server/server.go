// Package server serves the wish API, the step intros and live game sessions
// over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/livetemplate/newyear/internal/config"
	"github.com/livetemplate/newyear/internal/session"
	"github.com/livetemplate/newyear/internal/steps"
	"github.com/livetemplate/newyear/internal/store"
	"github.com/livetemplate/newyear/internal/wheel"
	"github.com/livetemplate/newyear/internal/wishclient"
	"github.com/livetemplate/newyear/internal/wishsync"
)

var errInvalidMessage = errors.New("invalid message: expected {\"action\": ..., \"data\": {...}}")

// Server is the newyear HTTP server.
type Server struct {
	cfg        *config.Config
	configPath string
	store      store.WishStore
	remote     wishsync.Remote
	catalog    atomic.Pointer[wheel.Catalog]
	sessions   *session.Manager
	upgrader   websocket.Upgrader

	mu     sync.RWMutex // guards intros and gate
	intros []steps.Info
	gate   steps.Options

	clients  map[*wsClient]struct{}
	connMu   sync.RWMutex
	closing  bool           // guarded by connMu; refuses new connections
	handlers sync.WaitGroup // running serveWebSocket loops

	watcher     *Watcher
	stopLimiter context.CancelFunc
	limiterDone <-chan struct{}
	handler     http.Handler
}

// New creates a server over st. configPath is the file watched for prize
// changes; it may be empty when watching is off.
//
// Sessions save and load wishes through st directly unless client.base_url
// points them at a separate wish API.
func New(cfg *config.Config, configPath string, st store.WishStore) (*Server, error) {
	catalog, err := wheel.CatalogFromConfig(cfg.Wheel)
	if err != nil {
		return nil, fmt.Errorf("failed to build prize catalog: %w", err)
	}
	intros, err := steps.RenderIntros(cfg.Steps.Intros)
	if err != nil {
		return nil, fmt.Errorf("failed to render step intros: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		store:      st,
		intros:     intros,
		gate:       steps.OptionsFromConfig(cfg),
		clients:    make(map[*wsClient]struct{}),
	}
	s.catalog.Store(catalog)
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	if cfg.Client.BaseURL != "" {
		s.remote = wishclient.NewWithConfig(cfg.Client.BaseURL, cfg.Client)
	} else {
		s.remote = storeRemote{store: st}
	}

	s.sessions = session.NewManager(s.newSession)
	s.handler = s.routes()
	return s, nil
}

func (s *Server) newSession(id string) *session.Session {
	s.mu.RLock()
	gate := s.gate
	s.mu.RUnlock()

	return session.New(id, s.Catalog, session.Options{
		Gate:         gate,
		SpinDuration: s.cfg.Wheel.GetSpinDuration(),
		Remote:       s.remote,
		Timeout:      s.cfg.Client.GetTimeout(),
	})
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/wish", NewWishHandler(s.store))
	mux.HandleFunc("/api/steps", s.serveSteps)
	mux.HandleFunc("/healthz", s.serveHealth)
	mux.HandleFunc("/ws", s.serveWebSocket)

	ctx, cancel := context.WithCancel(context.Background())
	limit, done := RateLimitMiddleware(ctx,
		s.cfg.API.GetRateLimitRPS(),
		s.cfg.API.GetRateLimitBurst(),
		s.cfg.API.GetRateLimitMaxIPs())
	s.stopLimiter = cancel
	s.limiterDone = done

	var h http.Handler = mux
	h = limit(h)
	h = CORSMiddleware(s.cfg.API.GetCORSOrigins())(h)
	h = SecurityHeadersMiddleware()(h)
	return WithCompression(h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Catalog returns the prize catalog in effect
func (s *Server) Catalog() *wheel.Catalog {
	return s.catalog.Load()
}

// Sessions returns the live session manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

func (s *Server) serveSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.RLock()
	intros := s.intros
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"title": s.cfg.Title,
		"steps": intros,
	})
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// Reload re-reads the config file and swaps in its prizes, step intros and
// step tuning. Running sessions pick up the new prizes on their next spin;
// step tuning applies to sessions created afterwards.
func (s *Server) Reload() error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	catalog, err := wheel.CatalogFromConfig(cfg.Wheel)
	if err != nil {
		return fmt.Errorf("failed to build prize catalog: %w", err)
	}
	intros, err := steps.RenderIntros(cfg.Steps.Intros)
	if err != nil {
		return fmt.Errorf("failed to render step intros: %w", err)
	}

	s.catalog.Store(catalog)
	s.mu.Lock()
	s.intros = intros
	s.gate = steps.OptionsFromConfig(cfg)
	s.gate.Debug = s.cfg.Server.Debug
	s.mu.Unlock()

	log.Printf("[Server] Reloaded %s: %d prizes", s.configPath, len(cfg.Wheel.Prizes))
	s.broadcastState()
	return nil
}

// EnableWatch reloads the config whenever its file changes.
func (s *Server) EnableWatch(debug bool) error {
	if s.configPath == "" {
		return errors.New("no config file to watch")
	}
	watcher, err := NewWatcher(s.configPath, func(string) error {
		return s.Reload()
	}, debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()
	log.Printf("[Watch] Watching %s for changes", s.configPath)
	return nil
}

// StopWatch stops the config watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher == nil {
		return nil
	}
	w := s.watcher
	s.watcher = nil
	return w.Stop()
}

// Close stops the watcher and the rate limiter sweeper, disconnects every
// WebSocket client and ends every session, waiting for their pending wish
// saves. The store is left open. Close may be called more than once.
func (s *Server) Close() error {
	err := s.StopWatch()
	s.stopLimiter()
	<-s.limiterDone
	s.closeClients()
	s.sessions.CloseAll()
	return err
}
