// Package sheetstub serves a local stand-in for the spreadsheet script.
// Rows are kept as loose JSON objects, the way a sheet stores cells.
package sheetstub

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libraquant/internal/domain"
)

type row = map[string]any

// Stub holds the sheet tabs in memory
type Stub struct {
	mu     sync.RWMutex
	tabs   map[string][]row
	writes int

	// Blocked makes reads answer with a login page
	blocked bool
	// noise is prepended to read responses
	noise string
}

// New creates a stub pre-filled with seed
func New(seed *domain.Snapshot) (*Stub, error) {
	s := &Stub{tabs: map[string][]row{
		domain.TargetSignals:   {},
		domain.TargetWatchlist: {},
		domain.TargetUsers:     {},
	}}
	if seed == nil {
		return s, nil
	}

	raw, err := json.Marshal(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seed: %w", err)
	}
	var tabs map[string][]row
	if err := json.Unmarshal(raw, &tabs); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	for name, rows := range tabs {
		if rows != nil {
			s.tabs[name] = rows
		}
	}
	return s, nil
}

// SetBlocked toggles the access-denied login page
func (s *Stub) SetBlocked(blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = blocked
}

// SetNoise sets text emitted before the JSON document
func (s *Stub) SetNoise(noise string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noise = noise
}

// Writes returns the number of applied writes
func (s *Stub) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Rows returns a copy of one tab
func (s *Stub) Rows(tab string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, 0, len(s.tabs[tab]))
	for _, r := range s.tabs[tab] {
		cp := make(row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Handler returns the script's HTTP surface
func (s *Stub) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleRead)
	r.Post("/", s.handleWrite)
	return r
}

func (s *Stub) handleRead(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	blocked, noise := s.blocked, s.noise
	body, err := json.Marshal(s.tabs)
	s.mu.RUnlock()

	if blocked {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "<!DOCTYPE html><html><body>Sign in to continue</body></html>")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, noise)
	_, _ = w.Write(body)
}

type writeRequest struct {
	Target  string          `json:"target"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	ID      string          `json:"id"`
}

func (s *Stub) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := s.apply(req); err != nil {
		log.Printf("[WARN] sheet stub rejected %s %s: %v", req.Action, req.Target, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"success"}`)
}

func (s *Stub) apply(req writeRequest) error {
	var payload row
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return fmt.Errorf("payload must be an object: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tabs[req.Target]
	if !ok {
		return fmt.Errorf("unknown target %q", req.Target)
	}

	switch req.Action {
	case domain.RemoteAdd:
		if payload == nil {
			return fmt.Errorf("missing payload")
		}
		s.tabs[req.Target] = append(rows, payload)
	case domain.RemoteUpdateSignal, domain.RemoteUpdateUser:
		i := indexOf(rows, req.ID)
		if i < 0 {
			return fmt.Errorf("no row with id %q", req.ID)
		}
		for k, v := range payload {
			rows[i][k] = v
		}
	case domain.RemoteDeleteUser:
		i := indexOf(rows, req.ID)
		if i < 0 {
			return fmt.Errorf("no row with id %q", req.ID)
		}
		s.tabs[req.Target] = append(rows[:i], rows[i+1:]...)
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
	s.writes++
	return nil
}

func indexOf(rows []row, id string) int {
	for i, r := range rows {
		if v, ok := r["id"]; ok && fmt.Sprint(v) == id {
			return i
		}
	}
	return -1
}
