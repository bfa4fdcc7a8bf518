// Package socket implements a JSON-over-Unix-socket protocol for the multimatch daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/multimatch/internal/ports"
)

// MaxMessage bounds a single request or response line. Search requests carry
// their text inline, so this is also the largest text the daemon will scan.
const MaxMessage = 16 * 1024 * 1024

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/multimatch-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/multimatch-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodSearch   = "search"
	MethodSet      = "set"
	MethodSets     = "sets"
	MethodHealth   = "health"
	MethodReload   = "reload"
	MethodShutdown = "shutdown"
)

// Request is one line sent by a client. Params is decoded by the handler for
// Method, so it stays raw until then.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one line sent back. Exactly one of Result and Error is set.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SearchParams is the params for a search request.
type SearchParams struct {
	Set  string `json:"set"`
	Text string `json:"text"`
}

// SetParams is the params for a set request.
type SetParams struct {
	Set string `json:"set"`
}

var (
	// ErrNoSet is returned for a search that names no set.
	ErrNoSet = errors.New("search: no set given")
	// ErrUnknownSet is returned for a search of a set that is not loaded.
	ErrUnknownSet = errors.New("unknown set")
	// ErrRemote wraps an error reported by the daemon.
	ErrRemote = errors.New("daemon error")
	// ErrTooLarge is returned when a request or its response does not fit
	// in MaxMessage.
	ErrTooLarge = errors.New("message too large")
)

// Search runs params against the loaded sets. It backs both the socket and
// the HTTP API.
func Search(q AppQueries, params SearchParams) (SearchResult, error) {
	if params.Set == "" {
		return SearchResult{}, ErrNoSet
	}
	m, ok := q.Matcher(params.Set)
	if !ok {
		return SearchResult{}, fmt.Errorf("%w: %s", ErrUnknownSet, params.Set)
	}
	start := time.Now()
	res := NewSearchResult(params.Set, m, m.Search(params.Text))
	res.Elapsed = time.Since(start).String()
	return res, nil
}

// SearchResult is the result of a search request.
type SearchResult struct {
	Set     string       `json:"set"`
	Matches []PatternHit `json:"matches"`
	Total   int          `json:"total"`
	Elapsed string       `json:"elapsed"`
}

// PatternHit lists every start offset of one pattern (wire format).
type PatternHit struct {
	Index   int    `json:"index"`
	Pattern string `json:"pattern"`
	Starts  []int  `json:"starts"`
}

// NewSearchResult flattens a match map into its wire form, patterns in
// ascending index order.
func NewSearchResult(set string, m ports.Matcher, matches ports.Matches) SearchResult {
	res := SearchResult{Set: set, Matches: []PatternHit{}, Total: matches.Total()}
	for _, idx := range matches.Indices() {
		res.Matches = append(res.Matches, PatternHit{
			Index:   idx,
			Pattern: m.Pattern(idx),
			Starts:  matches[idx],
		})
	}
	return res
}

// ToMatches converts the wire form back to a match map.
func (r *SearchResult) ToMatches() ports.Matches {
	out := make(ports.Matches, len(r.Matches))
	for _, h := range r.Matches {
		out[h.Index] = h.Starts
	}
	return out
}

// SetInfo summarizes one loaded pattern set.
type SetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Alphabet    string `json:"alphabet"`
	Fold        bool   `json:"fold,omitempty"`
	Patterns    int    `json:"patterns"`
	Source      string `json:"source"`
	Engine      string `json:"engine"`
}

// SetResult is the result of a set request: everything needed to compile
// the set exactly as the daemon did. Patterns keep their indices.
type SetResult struct {
	Info     SetInfo  `json:"info"`
	Patterns []string `json:"patterns"`
}

// SetsResult is the result of a sets request.
type SetsResult struct {
	Sets  []SetInfo `json:"sets"`
	Count int       `json:"count"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	SetCount int    `json:"set_count"`
	Engine   string `json:"engine"`
	Uptime   string `json:"uptime"`
}

// ReloadResult is the result of a reload request.
type ReloadResult struct {
	SetCount  int      `json:"set_count"`
	Failed    []string `json:"failed,omitempty"`
	ElapsedMs int64    `json:"elapsed_ms"`
}
