package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueries implements socket.AppQueries for testing.
type mockQueries struct {
	mu        sync.Mutex
	sets      map[string]ports.Matcher
	reloadErr error
	reloads   int
}

func (m *mockQueries) Matcher(set string) (ports.Matcher, bool) {
	mt, ok := m.sets[set]
	return mt, ok
}

func (m *mockQueries) Definition(set string) (socket.SetResult, bool) {
	return socket.SetResult{}, false
}

func (m *mockQueries) SetInfos() []socket.SetInfo {
	return []socket.SetInfo{{Name: "classic", Alphabet: "lower", Patterns: 4, Source: "builtin", Engine: "automaton"}}
}

func (m *mockQueries) EngineName() string { return "automaton" }

func (m *mockQueries) Reload() (socket.ReloadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.reloadErr != nil {
		return socket.ReloadResult{}, m.reloadErr
	}
	return socket.ReloadResult{SetCount: 1}, nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *mockQueries) {
	t.Helper()
	queries := &mockQueries{sets: map[string]ports.Matcher{
		"classic": automaton.New([]string{"he", "she", "his", "hers"}),
	}}
	srv := NewServer(queries, "")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, queries
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result socket.HealthResult
	decode(t, resp, &result)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 1, result.SetCount)
	assert.Equal(t, "automaton", result.Engine)
}

func TestSetsEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/sets")
	require.NoError(t, err)

	var result socket.SetsResult
	decode(t, resp, &result)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "classic", result.Sets[0].Name)
}

func TestSearchEndpoint_GetAndPost(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/search?set=classic&text=ushers")
	require.NoError(t, err)
	var got socket.SearchResult
	decode(t, resp, &got)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, ports.Matches{0: {2}, 1: {1}, 3: {2}}, got.ToMatches())

	body := `{"set":"classic","text":"ahishers"}`
	resp, err = http.Post(ts.URL+"/api/search", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, "classic", got.Set)
}

func TestSearchEndpoint_Errors(t *testing.T) {
	ts, _ := setupTestServer(t)

	tests := []struct {
		name   string
		do     func() (*http.Response, error)
		status int
		msg    string
	}{
		{"no set", func() (*http.Response, error) { return http.Get(ts.URL + "/api/search?text=x") }, 400, "no set given"},
		{"unknown set", func() (*http.Response, error) { return http.Get(ts.URL + "/api/search?set=nope&text=x") }, 404, "unknown set: nope"},
		{"bad json", func() (*http.Response, error) {
			return http.Post(ts.URL+"/api/search", "application/json", strings.NewReader("{nope"))
		}, 400, "invalid search params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.do()
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			decode(t, resp, &body)
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestReloadEndpoint(t *testing.T) {
	ts, queries := setupTestServer(t)

	resp, err := http.Post(ts.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	var res socket.ReloadResult
	decode(t, resp, &res)
	assert.Equal(t, 1, res.SetCount)

	queries.mu.Lock()
	queries.reloadErr = errors.New("store closed")
	queries.mu.Unlock()
	resp, err = http.Post(ts.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	resp.Body.Close()

	// GET is not routed for reload.
	resp, err = http.Get(ts.URL + "/api/reload")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_StartWritesPortFile(t *testing.T) {
	portFile := filepath.Join(t.TempDir(), "http.port")
	srv := NewServer(&mockQueries{}, portFile)
	require.NoError(t, srv.Start(0))
	assert.NotZero(t, srv.Port())
	assert.Contains(t, srv.URL(), "http://localhost:")

	port, err := ReadPort(portFile)
	require.NoError(t, err)
	assert.Equal(t, srv.Port(), port)

	srv.Stop()
	srv.Stop()
	_, err = os.Stat(portFile)
	assert.True(t, os.IsNotExist(err))
}

func TestReadPort_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadPort(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrDisabled)

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("port"), 0644))
	_, err = ReadPort(bad)
	assert.Error(t, err)
}

func TestDefaultPort(t *testing.T) {
	p := DefaultPort("/some/project")
	assert.GreaterOrEqual(t, p, 19000)
	assert.Less(t, p, 20000)
	assert.Equal(t, p, DefaultPort("/some/project"))
}
