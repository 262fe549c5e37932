package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/config"
	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/providers"
	"github.com/jackzampolin/problembook/internal/server/endpoints"
	"github.com/jackzampolin/problembook/internal/svcctx"
)

// Server is the problembook HTTP server. With the defra backend and
// storage.defra_docker set it also manages the DefraDB container, starting
// it on server start and stopping it on shutdown.
type Server struct {
	httpServer   *http.Server
	defraManager *defra.DockerManager
	registry     *providers.Registry
	cfg          *config.Config
	home         *home.Dir
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services
	// injected services are owned by the caller and not closed on shutdown
	injected bool

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu        sync.RWMutex
	running   bool
	listener  net.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

// Config holds server configuration.
type Config struct {
	// ConfigManager provides configuration with hot-reload support.
	// Without it DefaultConfig is used.
	ConfigManager *config.Manager
	// HomePath is the problembook home directory (default: ~/.problembook)
	HomePath string
	// Addr overrides server.host and server.port when set.
	Addr string
	// Services, when set, replaces the storage and services Start would
	// otherwise build. Used by tests and embedders.
	Services *svcctx.Services
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}

	dir, err := NewHome(cfg.HomePath, appCfg)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistryFromConfig(appCfg.ToProviderRegistryConfig(), cfg.Logger)
	if cfg.ConfigManager != nil {
		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		registry: registry,
		cfg:      appCfg,
		home:     dir,
		logger:   cfg.Logger,
		services: cfg.Services,
		injected: cfg.Services != nil,
		ready:    make(chan struct{}),
	}

	if appCfg.Storage.Backend == config.BackendDefra && appCfg.Storage.DefraDocker && !s.injected {
		s.defraManager, err = defra.NewDockerManager(defra.DockerConfig{
			ContainerName: appCfg.Defra.ContainerName,
			Image:         appCfg.Defra.Image,
			DataPath:      filepath.Join(dir.Path(), "defra"),
			HostPort:      appCfg.Defra.Port,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create defra manager: %w", err)
		}
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{DefraManager: s.defraManager}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	addr := appCfg.Server.Addr()
	if cfg.Addr != "" {
		addr = cfg.Addr
	}
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: exports and websocket streams run long.
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// Start opens storage, builds the services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return err
	}

	if s.defraManager != nil {
		s.logger.Info("starting DefraDB")
		if err := s.defraManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start DefraDB: %w", err)
		}
		if err := s.defraManager.WaitReady(ctx, defraReadyTimeout); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("DefraDB health check failed: %w", err)
		}
		s.logger.Info("DefraDB is ready", "url", s.defraManager.URL())
	}

	if !s.injected {
		store, defraClient, err := OpenStorage(ctx, s.cfg, s.home, s.logger)
		if err != nil {
			_ = s.shutdown()
			return err
		}
		svc := BuildServices(ctx, s.cfg, s.home, store, s.registry, s.logger)
		svc.DefraClient = defraClient
		s.mu.Lock()
		s.services = svc
		s.mu.Unlock()
		s.logger.Info("storage opened", "backend", s.cfg.Storage.Backend)
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops HTTP, the job manager, storage and DefraDB, in that order.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.RLock()
	svc := s.services
	s.mu.RUnlock()
	if svc != nil && !s.injected {
		if svc.JobManager != nil {
			svc.JobManager.Shutdown()
		}
		if svc.Storage != nil {
			if err := svc.Storage.Close(); err != nil {
				s.logger.Error("storage close error", "error", err)
			}
		}
	}

	if s.defraManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.defraManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
		if err := s.defraManager.Close(); err != nil {
			s.logger.Error("DefraDB manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Services returns the wired services, or nil before Start.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.Services(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if storage or the job manager aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := s.Services()
		if svc == nil || svc.Storage == nil || svc.JobManager == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
