package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/icdev-run/devagent/pkg/actor"
	"github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/runner"
)

// statusTimeout bounds the best-effort cycle balance query on /status.
const statusTimeout = 5 * time.Second

// TaskQueue is the queue surface the HTTP handlers need.
type TaskQueue interface {
	Enqueue(ctx context.Context, task runner.Task) int
	Depth() int
	Working() bool
}

// Server is the HTTP front door: task submission and status.
type Server struct {
	queue     TaskQueue
	actor     actor.Client
	principal string
	server    *http.Server
}

// Config configures the front door.
type Config struct {
	Port      int
	Queue     TaskQueue
	Actor     actor.Client
	Principal string
}

// New creates the server. It does not start listening.
func New(cfg Config) (*Server, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("task queue is required")
	}
	if cfg.Actor == nil {
		return nil, fmt.Errorf("actor client is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	s := &Server{
		queue:     cfg.Queue,
		actor:     cfg.Actor,
		principal: cfg.Principal,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler returns the HTTP handler (exposed for tests).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/task", s.handleTask)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/", s.handleFallback)
	return mux
}

// Start begins accepting requests until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	log.Info("http server listening", "addr", s.server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Close()
	}
}

// Close shuts the server down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type taskRequest struct {
	Repo   string `json:"repo"`
	Prompt string `json:"prompt"`
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Repo == "" || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repo and prompt are required"})
		return
	}

	task := runner.NewTask(req.Repo, req.Prompt)
	position := s.queue.Enqueue(context.Background(), task)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":   true,
		"position": position,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	cycles := "unknown"
	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()
	if balance, err := s.actor.CycleBalance(ctx); err != nil {
		log.Warn("cycle balance query failed", "error", err)
	} else {
		cycles = actor.FormatCycles(balance)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"principal": s.principal,
		"queue":     s.queue.Depth(),
		"working":   s.queue.Working(),
		"cycles":    cycles,
	})
}

func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
