package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/multimatch/internal/logger"
	"github.com/corey/multimatch/internal/ports"
)

// AppQueries provides access to the loaded pattern sets for server handlers.
// Thread safety is the implementor's responsibility.
type AppQueries interface {
	// Matcher returns the compiled matcher for a set name.
	Matcher(set string) (ports.Matcher, bool)
	// Definition returns the patterns and settings a set was compiled from.
	Definition(set string) (SetResult, bool)
	SetInfos() []SetInfo
	EngineName() string
	Reload() (ReloadResult, error)
}

// Server is the daemon that listens on a Unix socket and serves search requests.
type Server struct {
	queries  AppQueries
	listener net.Listener
	sockPath string
	started  time.Time

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by the given queries.
func NewServer(queries AppQueries, sockPath string) *Server {
	return &Server{
		queries:    queries,
		sockPath:   sockPath,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start binds the socket and begins serving. A socket file left behind by a
// dead daemon is removed first; a live one is an error.
func (s *Server) Start() error {
	if err := s.clearStale(); err != nil {
		return err
	}
	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Logger.Printf("listening on %s", s.sockPath)
	return nil
}

func (s *Server) clearStale() error {
	if _, err := os.Stat(s.sockPath); err != nil {
		return nil
	}
	if NewClient(s.sockPath).Ping() {
		return fmt.Errorf("daemon already running at %s", s.sockPath)
	}
	logger.Logger.Printf("removing stale socket %s", s.sockPath)
	if err := os.Remove(s.sockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

// Stop closes the listener, waits for open connections to finish their
// current request, and removes the socket file. Safe to call more than once,
// e.g. after a remote shutdown followed by a signal.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh is closed when a client sends a shutdown request. The daemon
// selects on it next to its signal channel.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			logger.DebugLogger.Printf("accept: %v", err)
			continue
		}
		// The loop's own count keeps the counter above zero, so this Add
		// cannot race Stop's Wait.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// serveConn answers requests on conn, one per line, until the client hangs
// up, sends shutdown, or the server stops.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	// A stopping server expires the pending read.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.done:
			conn.SetReadDeadline(time.Now())
		case <-connDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), MaxMessage)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		if req.Method == MethodShutdown {
			// Close before replying: a client that read the reply may rely on it.
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			s.writeResponse(conn, resp)
			return
		}
		s.writeResponse(conn, resp)
	}
	if err := scanner.Err(); err != nil {
		logger.DebugLogger.Printf("connection closed: %v", err)
	}
}

// handleRequest dispatches one request and wraps the outcome in a Response.
func (s *Server) handleRequest(req Request) Response {
	logger.DebugLogger.Printf("request id=%s method=%s", req.ID, req.Method)
	var result any
	var err error
	switch req.Method {
	case MethodSearch:
		var params SearchParams
		if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
			return Response{ID: req.ID, Error: "invalid search params"}
		}
		result, err = Search(s.queries, params)
	case MethodSet:
		var params SetParams
		if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil || params.Set == "" {
			return Response{ID: req.ID, Error: "invalid set params"}
		}
		def, ok := s.queries.Definition(params.Set)
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownSet, params.Set)
			break
		}
		result = def
	case MethodSets:
		infos := s.queries.SetInfos()
		if infos == nil {
			infos = []SetInfo{}
		}
		result = SetsResult{Sets: infos, Count: len(infos)}
	case MethodHealth:
		result = HealthResult{
			Status:   "ok",
			SetCount: len(s.queries.SetInfos()),
			Engine:   s.queries.EngineName(),
			Uptime:   time.Since(s.started).Round(time.Second).String(),
		}
	case MethodReload:
		result, err = s.queries.Reload()
	case MethodShutdown:
		result = struct{}{}
	default:
		err = fmt.Errorf("unknown method: %s", req.Method)
	}
	return respond(req.ID, result, err)
}

func respond(id string, result any, err error) Response {
	if err != nil {
		return Response{ID: id, Error: err.Error()}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return Response{ID: id, Error: fmt.Sprintf("encode result: %v", err)}
	}
	return Response{ID: id, Result: data}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Logger.Printf("[warning] encode response %s: %v", resp.ID, err)
		return
	}
	conn.Write(append(data, '\n'))
}
