// Package httpapi is the external HTTP surface (spec §6): JSON framing,
// routing, and role gating around the core leader/follower/store
// components. None of the ordering/quorum logic lives here — only
// translation between HTTP and the core's Go APIs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quorumkv/internal/config"
	"quorumkv/internal/errs"
	"quorumkv/internal/follower"
	"quorumkv/internal/leader"
	"quorumkv/internal/replication"
	"quorumkv/internal/runtimeconfig"
	"quorumkv/internal/store"
)

// Deps bundles everything the HTTP surface needs. Writer and Applier are
// mutually exclusive: exactly one is non-nil, matching the process's
// fixed role.
type Deps struct {
	Role                 config.Role
	Store                store.Store
	Writer               *leader.Writer
	Applier              *follower.Applier
	Scalars              *runtimeconfig.Scalars
	FollowerCount        int
	PerFollowerTimeoutMs int64
	Log                  *zap.Logger
}

// Server is the node's HTTP surface.
type Server struct {
	router *mux.Router
	deps   Deps
	log    *zap.Logger
	http   *http.Server
}

// New builds a Server and registers the routes permitted by deps.Role.
func New(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{router: mux.NewRouter(), deps: deps, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/get/{key}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/dump", s.handleDump).Methods(http.MethodGet)
	s.router.HandleFunc("/dump-versions", s.handleDumpVersions).Methods(http.MethodGet)

	if s.deps.Role == config.Leader {
		s.router.HandleFunc("/set", s.handleSet).Methods(http.MethodPost)
		s.router.HandleFunc("/config", s.handleConfigPost).Methods(http.MethodPost)
		s.router.HandleFunc("/config", s.handleConfigGet).Methods(http.MethodGet)
	}
	if s.deps.Role == config.Follower {
		s.router.HandleFunc("/replicate", s.handleReplicate).Methods(http.MethodPost)
	}
}

// Handler exposes the router directly, e.g. for httptest.NewServer in
// integration tests that want a real listening address without going
// through Start/Shutdown.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// loggingMiddleware attaches a correlation ID to every request and logs
// method, path, status, and latency once it completes (spec §10.1).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		next.ServeHTTP(rw, r.WithContext(ctx))

		s.log.Info("http request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"role":   string(s.deps.Role),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	entry, ok := s.deps.Store.Get(key)
	if !ok {
		http.Error(w, errs.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry.Value)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Store.Dump())
}

func (s *Server) handleDumpVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Store.DumpVersions())
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	result, err := s.deps.Writer.Write(r.Context(), key, value)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidConfiguration):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errs.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusOK
	if result.WasCancelled {
		status = 499
	}
	writeJSON(w, status, map[string]any{
		"success": result.IsSuccess,
		"quorum":  result.RequiredQuorum,
		"acks":    result.SuccessfulFollowers,
	})
}

func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	var cmd replication.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.deps.Applier.Apply(cmd)
	writeJSON(w, http.StatusOK, map[string]string{"status": "replicated"})
}

type configBody struct {
	WriteQuorum *int64 `json:"writeQuorum,omitempty"`
	MinDelayMs  *int64 `json:"minDelayMs,omitempty"`
	MaxDelayMs  *int64 `json:"maxDelayMs,omitempty"`
}

func (s *Server) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var body configBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quorum := s.deps.Scalars.WriteQuorum()
	minDelay := s.deps.Scalars.MinMs()
	maxDelay := s.deps.Scalars.MaxMs()

	if body.WriteQuorum != nil {
		quorum = *body.WriteQuorum
	}
	if body.MinDelayMs != nil {
		minDelay = *body.MinDelayMs
	}
	if body.MaxDelayMs != nil {
		maxDelay = *body.MaxDelayMs
	}

	if quorum < 1 || quorum > int64(s.deps.FollowerCount) {
		http.Error(w, fmt.Sprintf("writeQuorum must be in [1, %d]", s.deps.FollowerCount), http.StatusBadRequest)
		return
	}
	if minDelay < 0 || maxDelay < 0 {
		http.Error(w, "minDelayMs and maxDelayMs must be >= 0", http.StatusBadRequest)
		return
	}

	s.deps.Scalars.SetWriteQuorum(quorum)
	s.deps.Scalars.SetDelayBoundsMs(minDelay, maxDelay)

	s.writeEffectiveConfig(w)
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	s.writeEffectiveConfig(w)
}

func (s *Server) writeEffectiveConfig(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{
		"writeQuorum":          s.deps.Scalars.WriteQuorum(),
		"minDelayMs":           s.deps.Scalars.MinMs(),
		"maxDelayMs":           s.deps.Scalars.MaxMs(),
		"perFollowerTimeoutMs": s.deps.PerFollowerTimeoutMs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
