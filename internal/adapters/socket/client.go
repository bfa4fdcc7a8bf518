package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

// Per-method deadlines for a whole request/response exchange. Searches carry
// their text and reloads recompile every set, so both get more time.
const (
	dialTimeout   = 2 * time.Second
	pingTimeout   = 500 * time.Millisecond
	queryTimeout  = 5 * time.Second
	searchTimeout = 30 * time.Second
	reloadTimeout = 2 * time.Minute
)

// Client connects to the multimatch daemon over a Unix socket. Each call
// opens its own connection, so a Client is safe for concurrent use.
type Client struct {
	sockPath string
	seq      atomic.Uint64
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Search scans text with the named set on the daemon.
func (c *Client) Search(set, text string) (*SearchResult, error) {
	var result SearchResult
	if err := c.call(MethodSearch, SearchParams{Set: set, Text: text}, searchTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Set fetches the definition of one loaded set.
func (c *Client) Set(name string) (*SetResult, error) {
	var result SetResult
	if err := c.call(MethodSet, SetParams{Set: name}, queryTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Sets lists the sets the daemon has loaded.
func (c *Client) Sets() (*SetsResult, error) {
	var result SetsResult
	if err := c.call(MethodSets, nil, queryTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health reports daemon status.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.call(MethodHealth, nil, queryTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the daemon to rebuild every set.
func (c *Client) Reload() (*ReloadResult, error) {
	var result ReloadResult
	if err := c.call(MethodReload, nil, reloadTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown asks the daemon to exit. It returns once the daemon has
// acknowledged; the process may still be stopping.
func (c *Client) Shutdown() error {
	return c.call(MethodShutdown, nil, queryTimeout, nil)
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, pingTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// call sends one request and decodes its result into out (skipped when out
// is nil). An error reported by the daemon wraps ErrRemote; a request or
// response over MaxMessage wraps ErrTooLarge.
func (c *Client) call(method string, params any, timeout time.Duration, out any) error {
	req := Request{ID: strconv.FormatUint(c.seq.Add(1), 10), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		req.Params = raw
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if len(data) >= MaxMessage {
		return fmt.Errorf("%w: %s request is %d bytes (max %d)", ErrTooLarge, method, len(data), MaxMessage)
	}

	conn, err := net.DialTimeout("unix", c.sockPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), MaxMessage)
	if !scanner.Scan() {
		err := scanner.Err()
		switch {
		case errors.Is(err, bufio.ErrTooLong):
			return fmt.Errorf("%w: %s response exceeds %d bytes", ErrTooLarge, method, MaxMessage)
		case err != nil:
			return fmt.Errorf("read %s response: %w", method, err)
		}
		return fmt.Errorf("read %s response: connection closed", method)
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}
