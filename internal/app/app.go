// Package app wires the pattern-set store, the compiled-matcher registry, the
// file watcher and the socket server into the multimatch daemon.
package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/corey/multimatch/internal/adapters/bbolt"
	fsw "github.com/corey/multimatch/internal/adapters/fsnotify"
	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/adapters/web"
	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/logger"
	"github.com/corey/multimatch/internal/ports"
)

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	Paths       *Paths
	Settings    Settings

	Store    *bbolt.Store
	Watcher  *fsw.Watcher
	Registry *Registry
	Server   *socket.Server
	Web      *web.Server // nil unless Settings.HTTP

	watchPaths []string          // configured watch list, absolute
	reloadMu   sync.Mutex        // serializes reloads and file-change rebuilds
	fileSets   map[string]string // pattern file path -> set name it defined
}

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string
	DBPath      string    // path to bbolt file (default: .multimatch/multimatch.db)
	SockPath    string    // default: computed from project root
	Settings    *Settings // nil = load from .multimatch/config.yaml
}

// New creates an App with all dependencies wired and every set compiled.
// Does not start services.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	paths := NewPaths(cfg.ProjectRoot)
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Root, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = paths.DB
	}
	if cfg.SockPath == "" {
		cfg.SockPath = socket.SocketPath(cfg.ProjectRoot)
	}

	var settings Settings
	if cfg.Settings != nil {
		settings = *cfg.Settings
		if err := settings.Validate(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if settings, err = LoadSettings(paths.Config); err != nil {
			return nil, err
		}
	}
	engine, err := ParseEngine(settings.Engine)
	if err != nil {
		return nil, err
	}

	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	watcher, err := fsw.NewWatcher()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	a := &App{
		ProjectRoot: cfg.ProjectRoot,
		Paths:       paths,
		Settings:    settings,
		Store:       store,
		Watcher:     watcher,
		Registry:    NewRegistry(engine, settings.Alphabet),
		watchPaths:  settings.WatchPaths(cfg.ProjectRoot),
		fileSets:    make(map[string]string),
	}

	// Create servers with App as query provider
	a.Server = socket.NewServer(a, cfg.SockPath)
	if settings.HTTP {
		a.Web = web.NewServer(a, paths.HTTPPort)
	}

	if _, err := a.Reload(); err != nil {
		watcher.Stop()
		store.Close()
		return nil, fmt.Errorf("load sets: %w", err)
	}
	return a, nil
}

// Start begins the daemon (socket server, pattern file watcher, and the
// HTTP API when enabled).
func (a *App) Start() error {
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	// Start file watcher, non-fatal if setup fails
	if files := a.patternFiles(); len(files) > 0 {
		if err := a.Watcher.WatchFiles(files, a.onFileChanged); err != nil {
			logger.Logger.Printf("[warning] file watcher unavailable: %v", err)
		}
	}
	// HTTP API on the project port, or any free port if that one is taken
	if a.Web != nil {
		if err := a.Web.Start(web.DefaultPort(a.ProjectRoot)); err != nil {
			if err := a.Web.Start(0); err != nil {
				logger.Logger.Printf("[warning] http api unavailable: %v", err)
			}
		}
	}
	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		logger.Logger.Printf("[warning] write pid file: %v", err)
	}
	logger.Logger.Printf("daemon started: %d sets, engine %s", a.Registry.Len(), a.Registry.EngineName())
	return nil
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	a.Watcher.Stop()
	if a.Web != nil {
		a.Web.Stop()
	}
	a.Server.Stop()
	a.Paths.CleanEphemeral()
	logger.Logger.Printf("daemon stopped")
	return a.Store.Close()
}

// Reload recompiles every set from scratch (built-ins, then stored sets, then
// pattern files, later sources shadowing earlier ones of the same name) and
// swaps the whole generation in at once. A set that fails to compile is
// reported in Failed and left out; it never aborts the reload.
func (a *App) Reload() (socket.ReloadResult, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()
	return a.reloadLocked()
}

func (a *App) reloadLocked() (socket.ReloadResult, error) {
	start := time.Now()
	next := make(map[string]*Compiled)
	var failed []string

	add := func(set *patternset.Set, origin string) {
		c, err := a.Registry.Compile(set, origin)
		if err != nil {
			logger.Logger.Printf("[warning] skip set %q: %v", set.Name, err)
			failed = append(failed, set.Name)
			return
		}
		next[set.Name] = c
	}

	builtins, err := Builtins()
	if err != nil {
		return socket.ReloadResult{}, err
	}
	for _, b := range builtins {
		add(b, OriginBuiltin)
	}

	names, err := a.Store.ListSets()
	if err != nil {
		return socket.ReloadResult{}, fmt.Errorf("list stored sets: %w", err)
	}
	for _, name := range names {
		st, err := a.Store.LoadSet(name)
		if err != nil {
			logger.Logger.Printf("[warning] load stored set %q: %v", name, err)
			failed = append(failed, name)
			continue
		}
		if st != nil {
			add(patternset.FromStored(st), OriginStore)
		}
	}

	files := a.patternFiles()
	fileSets := make(map[string]string, len(files))
	for _, path := range files {
		set, err := patternset.LoadFile(path)
		if err != nil {
			logger.Logger.Printf("[warning] load %s: %v", path, err)
			failed = append(failed, path)
			continue
		}
		fileSets[path] = set.Name
		add(set, OriginFile)
	}

	a.Registry.Replace(next)
	a.fileSets = fileSets

	elapsed := time.Since(start)
	logger.Logger.Printf("reload: %d sets compiled, %d failed (%s)", len(next), len(failed), elapsed.Round(time.Microsecond))
	return socket.ReloadResult{
		SetCount:  len(next),
		Failed:    failed,
		ElapsedMs: elapsed.Milliseconds(),
	}, nil
}

// patternFiles lists the configured watch files followed by the files in
// .multimatch/sets/. Files in sets/ are rescanned on every reload; the
// watcher only follows those present at Start.
func (a *App) patternFiles() []string {
	files := append([]string(nil), a.watchPaths...)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f] = true
	}
	for _, f := range a.Paths.SetFiles() {
		if !seen[f] {
			files = append(files, f)
		}
	}
	return files
}

// onFileChanged rebuilds the set defined by a watched file. Only that set's
// matcher is replaced. When the file disappears, or it now defines a different
// name, a full reload restores whatever the file used to shadow.
func (a *App) onFileChanged(path string) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	set, err := patternset.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Logger.Printf("%s removed, reloading", path)
			if _, err := a.reloadLocked(); err != nil {
				logger.Logger.Printf("[warning] reload: %v", err)
			}
			return
		}
		// Keep serving the previous matcher until the file parses again.
		logger.Logger.Printf("[warning] %s: %v (keeping previous set)", path, err)
		return
	}

	if prev, ok := a.fileSets[path]; ok && prev != set.Name {
		logger.Logger.Printf("%s renamed set %q to %q, reloading", path, prev, set.Name)
		if _, err := a.reloadLocked(); err != nil {
			logger.Logger.Printf("[warning] reload: %v", err)
		}
		return
	}

	for other, name := range a.fileSets {
		if other != path && name == set.Name {
			// Another file defines the same name; file order decides which wins.
			logger.Logger.Printf("%s and %s both define set %q, reloading", path, other, set.Name)
			if _, err := a.reloadLocked(); err != nil {
				logger.Logger.Printf("[warning] reload: %v", err)
			}
			return
		}
	}

	if err := a.Registry.Put(set, OriginFile); err != nil {
		logger.Logger.Printf("[warning] %v (keeping previous set)", err)
		return
	}
	a.fileSets[path] = set.Name
	logger.Logger.Printf("rebuilt set %q from %s (%d patterns)", set.Name, path, len(set.Patterns))
}

// Matcher returns the compiled matcher for a set (socket.AppQueries).
func (a *App) Matcher(set string) (ports.Matcher, bool) {
	return a.Registry.Matcher(set)
}

// Definition returns what a loaded set was compiled from (socket.AppQueries).
func (a *App) Definition(set string) (socket.SetResult, bool) {
	c, ok := a.Registry.Get(set)
	if !ok {
		return socket.SetResult{}, false
	}
	return socket.SetResult{Info: c.Info, Patterns: c.Set.Patterns}, true
}

// SetInfos summarizes the loaded sets (socket.AppQueries).
func (a *App) SetInfos() []socket.SetInfo {
	return a.Registry.SetInfos()
}

// EngineName returns the configured engine (socket.AppQueries).
func (a *App) EngineName() string {
	return a.Registry.EngineName()
}

var _ socket.AppQueries = (*App)(nil)
