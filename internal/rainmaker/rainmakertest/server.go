// Package rainmakertest provides an in-process fake of the RainMaker login and node params endpoints.
package rainmakertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// Server fakes the subset of the RainMaker API the ingestion pipeline uses.
// Responses can be swapped between requests; all setters are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.RWMutex
	userName    string
	password    string
	token       string
	loginStatus int
	loginBody   any
	params      map[string]map[string]any
	nodes       []string

	Logins  atomic.Int64
	Fetches atomic.Int64
}

// NewServer starts a fake accepting userName/password and issuing token.
func NewServer(userName, password, token string) *Server {
	s := NewUnstartedServer(userName, password, token)
	s.Start()
	return s
}

// NewUnstartedServer is like NewServer but leaves the listener to the caller,
// which may replace Listener before calling Start.
func NewUnstartedServer(userName, password, token string) *Server {
	s := &Server{
		userName:    userName,
		password:    password,
		token:       token,
		loginStatus: http.StatusOK,
		params:      make(map[string]map[string]any),
	}
	s.Server = httptest.NewUnstartedServer(s.Handler())
	return s
}

// Handler returns the routing handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/login", s.handleLogin)
	mux.HandleFunc("/v1/user/nodes/params", s.handleParams)
	mux.HandleFunc("/v1/user/nodes", s.handleNodes)
	return mux
}

// SetNodeParams sets the full params document returned for nodeID.
func (s *Server) SetNodeParams(nodeID string, params map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.params[nodeID]; !ok {
		s.nodes = append(s.nodes, nodeID)
	}
	s.params[nodeID] = params
}

// SetToken changes the token issued by login. Requests carrying the old token
// are rejected from then on, as if it had been revoked.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetLoginResponse overrides the login status and body. A nil body restores the default.
func (s *Server) SetLoginResponse(status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginStatus = status
	s.loginBody = body
}

type credentials struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.Logins.Add(1)

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "failure", "description": "bad request"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if creds.UserName != s.userName || creds.Password != s.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "failure", "description": "Incorrect user name or password"})
		return
	}
	if s.loginBody != nil {
		writeJSON(w, s.loginStatus, s.loginBody)
		return
	}
	writeJSON(w, s.loginStatus, map[string]string{
		"status":       "success",
		"accesstoken":  s.token,
		"idtoken":      "id-" + s.token,
		"refreshtoken": "refresh-" + s.token,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.Header.Get("Authorization") == s.token
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.Fetches.Add(1)
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "failure", "description": "Unauthorized"})
		return
	}

	nodeID := r.URL.Query().Get("node_id")
	s.mu.RLock()
	params, ok := s.params[nodeID]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "failure", "description": "Node not found"})
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "failure", "description": "Unauthorized"})
		return
	}
	s.mu.RLock()
	nodes := append([]string(nil), s.nodes...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "total": len(nodes)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
