// Package web serves the daemon's queries as a JSON API over HTTP.
// Binds to localhost only, so no network exposure and no auth needed.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/logger"
)

// maxBody caps a search request body, matching the socket protocol's limit.
const maxBody = socket.MaxMessage

// Server serves the JSON API over HTTP.
type Server struct {
	queries  socket.AppQueries
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .multimatch/run/http.port
}

// NewServer creates an HTTP server answering from queries.
// The portFilePath is where the bound port is written for discovery.
func NewServer(queries socket.AppQueries, portFilePath string) *Server {
	return &Server{
		queries:      queries,
		portFilePath: portFilePath,
		started:      time.Now(),
	}
}

// DefaultPort computes a project-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	// Use first 4 bytes as uint32
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Start begins listening on the preferred port (0 picks any free one).
// Writes the bound port to the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	// Write port file for discovery
	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(fmt.Sprintf("%d", s.port)), 0644); err != nil {
			logger.Logger.Printf("[warning] write port file: %v", err)
		}
	}

	go s.httpSrv.Serve(ln)
	logger.Logger.Printf("http api on %s", s.URL())
	return nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/sets", s.handleSets)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	return mux
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, socket.HealthResult{
		Status:   "ok",
		SetCount: len(s.queries.SetInfos()),
		Engine:   s.queries.EngineName(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleSets(w http.ResponseWriter, r *http.Request) {
	infos := s.queries.SetInfos()
	if infos == nil {
		infos = []socket.SetInfo{}
	}
	writeJSON(w, http.StatusOK, socket.SetsResult{Sets: infos, Count: len(infos)})
}

// handleSearch accepts ?set=&text= on GET, or a socket.SearchParams JSON body
// on POST for texts too large for a query string.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var params socket.SearchParams
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if len(body) > maxBody {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid search params")
			return
		}
	} else {
		params.Set = r.URL.Query().Get("set")
		params.Text = r.URL.Query().Get("text")
	}

	result, err := socket.Search(s.queries, params)
	switch {
	case errors.Is(err, socket.ErrUnknownSet):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.queries.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ErrDisabled is returned by callers that find no port file.
var ErrDisabled = errors.New("http api not enabled")

// ReadPort reads the port written by a running server, for discovery.
func ReadPort(portFilePath string) (int, error) {
	data, err := os.ReadFile(portFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDisabled
		}
		return 0, err
	}
	var port int
	if _, err := fmt.Sscanf(string(data), "%d", &port); err != nil {
		return 0, fmt.Errorf("parse %s: %w", portFilePath, err)
	}
	return port, nil
}
