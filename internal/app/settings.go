package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/corey/multimatch/internal/domain/automaton"
)

// Settings is the user-editable project configuration, stored as
// .multimatch/config.yaml. Every field has a working default, so the file is
// optional.
type Settings struct {
	// Alphabet is used for sets that do not name their own.
	Alphabet string `yaml:"alphabet"`

	// Engine selects the matcher implementation: "automaton" or "library".
	Engine string `yaml:"engine"`

	// Watch lists pattern files (YAML sets or plain lists) the daemon loads
	// and rebuilds whenever they change. Relative paths resolve against the
	// project root.
	Watch []string `yaml:"watch,omitempty"`

	// HTTP also serves the daemon's queries as a JSON API on localhost.
	HTTP bool `yaml:"http,omitempty"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Alphabet: automaton.Lowercase.Name(),
		Engine:   string(EngineAutomaton),
	}
}

// LoadSettings reads settings from path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings as YAML, creating the parent directory.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the alphabet and engine are known.
func (s Settings) Validate() error {
	if _, err := automaton.AlphabetByName(s.Alphabet); err != nil {
		return err
	}
	if _, err := ParseEngine(s.Engine); err != nil {
		return err
	}
	return nil
}

// WatchPaths returns the watch list with relative entries resolved against root.
func (s Settings) WatchPaths(root string) []string {
	out := make([]string, 0, len(s.Watch))
	for _, p := range s.Watch {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
