package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	SessionHeader   = "Mcp-Session-Id"
	maxRequestBytes = 4 << 20
)

// DefaultSessionIdleTTL is how long a session survives without requests.
const DefaultSessionIdleTTL = 30 * time.Minute

// sessionStore tracks sessions issued at initialize. A session idle for longer than ttl is
// dropped: expired entries are swept on every create and refused by touch.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	lastSeen map[string]time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionIdleTTL
	}
	return &sessionStore{ttl: ttl, now: time.Now, lastSeen: make(map[string]time.Time)}
}

func (s *sessionStore) create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for sid, seen := range s.lastSeen {
		if now.Sub(seen) > s.ttl {
			delete(s.lastSeen, sid)
		}
	}
	s.lastSeen[id] = now
	return id
}

func (s *sessionStore) touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen, ok := s.lastSeen[id]
	if !ok {
		return false
	}
	now := s.now()
	if now.Sub(seen) > s.ttl {
		delete(s.lastSeen, id)
		return false
	}
	s.lastSeen[id] = now
	return true
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastSeen[id]; !ok {
		return false
	}
	delete(s.lastSeen, id)
	return true
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}

// StreamableHandler serves MCP streamable HTTP with plain JSON responses. Server-sent
// events are not offered, so GET is rejected and progress goes to the log only.
type StreamableHandler struct {
	dispatcher *Dispatcher
	sessions   *sessionStore
	logger     *slog.Logger
}

// NewStreamableHandler serves MCP over HTTP. Sessions idle for longer than
// DefaultSessionIdleTTL are forgotten.
func NewStreamableHandler(dispatcher *Dispatcher, logger *slog.Logger) *StreamableHandler {
	return &StreamableHandler{dispatcher: dispatcher, sessions: newSessionStore(DefaultSessionIdleTTL), logger: logger}
}

func (h *StreamableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.post(w, r)
	case http.MethodDelete:
		id := r.Header.Get(SessionHeader)
		if id == "" {
			http.Error(w, "missing "+SessionHeader, http.StatusBadRequest)
			return
		}
		if !h.sessions.delete(id) {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		h.logger.InfoContext(r.Context(), "mcp session closed", "session_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StreamableHandler) post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBytes {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	body = bytes.TrimSpace(body)
	batch := len(body) > 0 && body[0] == '['
	var reqs []Request
	if batch {
		err = json.Unmarshal(body, &reqs)
	} else {
		var req Request
		err = json.Unmarshal(body, &req)
		reqs = []Request{req}
	}
	if err != nil || len(reqs) == 0 {
		writeJSON(w, http.StatusBadRequest, parseError())
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	initializing := false
	for _, req := range reqs {
		if req.Method == "initialize" {
			initializing = true
		}
	}
	switch {
	case initializing:
		sessionID = h.sessions.create()
		w.Header().Set(SessionHeader, sessionID)
		h.logger.InfoContext(r.Context(), "mcp session opened", "session_id", sessionID, "remote", r.RemoteAddr)
	case sessionID != "" && !h.sessions.touch(sessionID):
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	ctx := withSessionID(r.Context(), sessionID)
	var out []Response
	for _, req := range reqs {
		if resp, ok := h.dispatcher.Handle(ctx, req, nil); ok {
			out = append(out, resp)
		}
	}
	switch {
	case len(out) == 0:
		w.WriteHeader(http.StatusAccepted)
	case batch:
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusOK, out[0])
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
