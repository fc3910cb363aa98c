// Package admin serves the administrative HTTP interface of a write server.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/server"
)

// PeerSource reports the replication peers currently known.
type PeerSource interface {
	Peers() []server.Server
}

// Deps are the capabilities the admin endpoints read from. Nil fields make
// the matching endpoint answer 404.
type Deps struct {
	Lifecycle needlekit.Lifecycle
	Bindings  *needlekit.BindingSet
	Peers     PeerSource
	Registry  *server.Registry
	Metrics   http.Handler
}

type Server struct {
	host   string
	port   int
	deps   Deps
	logger *slog.Logger
	router chi.Router

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

func New(host string, port int, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		host:   host,
		port:   port,
		deps:   deps,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Get("/bindings", s.bindings)
	r.Get("/peers", s.peers)
	r.Route("/registry", func(r chi.Router) {
		r.Get("/", s.listInstances)
		r.Post("/", s.registerInstance)
		r.Get("/{id}", s.getInstance)
		r.Delete("/{id}", s.unregisterInstance)
	})
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the admin port and serves in the background. Port 0 picks a
// free port; Port reports it afterwards.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errors.New("admin server already started")
	}

	var lc net.ListenConfig
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("admin listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	s.srv, s.listener, s.done = srv, ln, done

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", "error", err)
		}
	}()

	s.logger.Debug("admin server listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	<-done
	return nil
}

// Port returns the bound port, or the configured one before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().(*net.TCPAddr).Port
	}
	return s.port
}

func (s *Server) ReadinessCheck(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return errors.New("admin server is not serving")
	}
	return nil
}

type checkResponse struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type statusResponse struct {
	Status string          `json:"status"`
	Checks []checkResponse `json:"checks,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		http.NotFound(w, r)
		return
	}

	resp := statusResponse{Status: string(needlekit.HealthStatusUp)}
	for _, report := range s.deps.Lifecycle.Health(r.Context()) {
		check := checkResponse{
			Name:      report.Name,
			Status:    string(report.Status),
			LatencyMS: report.Latency.Milliseconds(),
		}
		if report.Error != nil {
			check.Error = report.Error.Error()
			resp.Status = string(needlekit.HealthStatusDown)
		}
		resp.Checks = append(resp.Checks, check)
	}

	code := http.StatusOK
	if resp.Status != string(needlekit.HealthStatusUp) {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lifecycle == nil {
		http.NotFound(w, r)
		return
	}

	if !s.deps.Lifecycle.Running() {
		s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "starting"})
		return
	}
	if err := s.deps.Lifecycle.Ready(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not_ready", Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

type bindingResponse struct {
	Key          string   `json:"key"`
	Origin       string   `json:"origin"`
	Module       string   `json:"module"`
	Scope        string   `json:"scope"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func (s *Server) bindings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bindings == nil {
		http.NotFound(w, r)
		return
	}

	infos := needlekit.Describe(s.deps.Bindings)
	resp := make([]bindingResponse, 0, len(infos))
	for _, info := range infos {
		deps := make([]string, 0, len(info.Dependencies))
		for _, d := range info.Dependencies {
			deps = append(deps, string(d))
		}
		resp = append(
			resp, bindingResponse{
				Key:          string(info.Key),
				Origin:       info.Origin,
				Module:       info.Module,
				Scope:        info.Scope,
				Dependencies: deps,
			},
		)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type peerResponse struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (s *Server) peers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Peers == nil {
		http.NotFound(w, r)
		return
	}

	peers := s.deps.Peers.Peers()
	resp := make([]peerResponse, 0, len(peers))
	for _, p := range peers {
		resp = append(resp, peerResponse{Host: p.Host, Port: p.Port})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type instanceRequest struct {
	ID      string `json:"id"`
	App     string `json:"app"`
	Address string `json:"address"`
	Status  string `json:"status,omitempty"`
}

func toInstanceResponse(info server.InstanceInfo) instanceRequest {
	return instanceRequest{
		ID:      info.ID,
		App:     info.App,
		Address: info.Address.String(),
		Status:  string(info.Status),
	}
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		http.NotFound(w, r)
		return
	}

	snapshot := s.deps.Registry.Snapshot()
	resp := make([]instanceRequest, 0, len(snapshot))
	for _, info := range snapshot {
		resp = append(resp, toInstanceResponse(info))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) registerInstance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		http.NotFound(w, r)
		return
	}

	var req instanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, statusResponse{Status: "invalid", Error: err.Error()})
		return
	}

	address, err := server.ParseServer(req.Address)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, statusResponse{Status: "invalid", Error: err.Error()})
		return
	}

	info := server.InstanceInfo{
		ID:      req.ID,
		App:     req.App,
		Address: address,
		Status:  server.InstanceStatus(req.Status),
	}
	if err := s.deps.Registry.Register(info); err != nil {
		s.writeJSON(w, http.StatusBadRequest, statusResponse{Status: "invalid", Error: err.Error()})
		return
	}

	stored, _ := s.deps.Registry.Get(info.ID)
	s.writeJSON(w, http.StatusCreated, toInstanceResponse(stored))
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		http.NotFound(w, r)
		return
	}

	info, ok := s.deps.Registry.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, toInstanceResponse(info))
}

func (s *Server) unregisterInstance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Registry == nil {
		http.NotFound(w, r)
		return
	}

	if !s.deps.Registry.Unregister(chi.URLParam(r, "id")) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("admin response encoding failed", "error", err)
	}
}
