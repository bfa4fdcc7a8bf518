package app

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths holds all resolved filesystem paths for the .multimatch/ project directory.
// All fields are pre-computed strings, so access never allocates.
type Paths struct {
	Root   string // .multimatch/
	DB     string // .multimatch/multimatch.db
	Config string // .multimatch/config.yaml

	SetsDir string // .multimatch/sets/, pattern files loaded like watched files

	LogDir    string // .multimatch/log/
	DaemonLog string // .multimatch/log/daemon.log

	RunDir   string // .multimatch/run/
	PIDFile  string // .multimatch/run/daemon.pid
	HTTPPort string // .multimatch/run/http.port
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".multimatch")
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "multimatch.db"),
		Config: filepath.Join(root, "config.yaml"),

		SetsDir: filepath.Join(root, "sets"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		HTTPPort: filepath.Join(root, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories under .multimatch/. Idempotent.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.Root,
		p.SetsDir,
		p.LogDir,
		p.RunDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files (PID and port files).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.HTTPPort)
}

// SetFiles lists the pattern files in SetsDir (.yaml, .yml and .txt), sorted.
// A missing directory yields none.
func (p *Paths) SetFiles() []string {
	entries, err := os.ReadDir(p.SetsDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".txt":
			files = append(files, filepath.Join(p.SetsDir, e.Name()))
		}
	}
	return files
}
