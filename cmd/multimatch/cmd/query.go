package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/app"
	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/logger"
	"github.com/corey/multimatch/internal/ports"
	"github.com/spf13/pflag"
)

// adhocSetName names a set assembled from -e / -f on the command line.
const adhocSetName = "adhoc"

// query says which patterns to match and how. Shared by search and watch.
type query struct {
	set      string
	patterns []string
	file     string
	alphabet string
	fold     bool
	engine   string
	local    bool
}

func (q *query) register(f *pflag.FlagSet) {
	f.StringVarP(&q.set, "set", "s", "", "Named pattern set (built-in or stored)")
	f.StringArrayVarP(&q.patterns, "regexp", "e", nil, "Pattern to match (repeatable, fixed string)")
	f.StringVarP(&q.file, "file", "f", "", "Read patterns from file (.yaml set or one per line)")
	f.StringVar(&q.alphabet, "alphabet", "", "Alphabet: lower, dna, printable, bytes or chars:<symbols>")
	f.BoolVarP(&q.fold, "ignore-case", "i", false, "ASCII case-insensitive matching")
	f.StringVar(&q.engine, "engine", "", "Matcher engine: automaton or library")
	f.BoolVar(&q.local, "local", false, "Never ask the daemon; compile in-process")
}

func (q query) adhoc() bool {
	return len(q.patterns) > 0 || q.file != ""
}

// overrides reports whether q changes how a named set is compiled, which the
// daemon's prebuilt matcher cannot honour.
func (q query) overrides() bool {
	return q.alphabet != "" || q.fold || q.engine != ""
}

func (q query) validate() error {
	switch {
	case q.set == "" && !q.adhoc():
		return errors.New("no patterns: give --set, -e or -f")
	case q.set != "" && q.adhoc():
		return errors.New("--set cannot be combined with -e or -f")
	}
	return nil
}

// resolve assembles the pattern set q describes.
func (q query) resolve(root string) (*patternset.Set, error) {
	if q.set != "" {
		store, err := openStore(root, false)
		if err != nil {
			return nil, err
		}
		if store == nil {
			set, _, err := app.ResolveSet(nil, q.set)
			return set, err
		}
		defer store.Close()
		set, _, err := app.ResolveSet(store, q.set)
		return set, err
	}

	set := &patternset.Set{Name: adhocSetName}
	if q.file != "" {
		fromFile, err := patternset.LoadFile(q.file)
		if err != nil {
			return nil, err
		}
		set = fromFile
	}
	set.Patterns = append(set.Patterns, q.patterns...)
	return set, nil
}

// compile builds the matcher for q in-process. Flags override the set's own
// alphabet and fold; the project config supplies the defaults.
func (q query) compile(root string, warn io.Writer) (ports.Matcher, string, error) {
	settings, err := loadSettings(root)
	if err != nil {
		return nil, "", err
	}
	set, err := q.resolve(root)
	if err != nil {
		return nil, "", err
	}
	if q.alphabet != "" {
		set.Alphabet = q.alphabet
	}
	if q.fold {
		set.Fold = true
	}

	engineName := settings.Engine
	if q.engine != "" {
		engineName = q.engine
	}
	engine, err := app.ParseEngine(engineName)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	m, err := app.Compile(set, engine, settings.Alphabet)
	if err != nil {
		return nil, "", err
	}
	logger.Logger.Printf("compiled %q: %d patterns, engine %s (%s)", set.Name, m.PatternCount(), engine, time.Since(start))

	warnRejected(m, warn)
	return m, set.Name, nil
}

func warnRejected(m ports.Matcher, warn io.Writer) {
	if r, ok := m.(interface{ Rejected() []*automaton.PatternError }); ok && warn != nil {
		for _, pe := range r.Rejected() {
			fmt.Fprintf(warn, "warning: %v (never matches)\n", pe)
		}
	}
}

// searchFunc runs one text through a matcher, local or remote.
type searchFunc func(text string) (*socket.SearchResult, error)

// newSearchFunc routes plain named-set queries to a running daemon and
// compiles everything else locally.
func newSearchFunc(root string, q query, warn io.Writer) (searchFunc, error) {
	if !q.local && q.set != "" && !q.adhoc() && !q.overrides() {
		client := socket.NewClient(socket.SocketPath(root))
		if client.Ping() {
			logger.DebugLogger.Printf("searching %q via daemon", q.set)
			return daemonSearch(client, q.set, warn), nil
		}
	}

	m, name, err := q.compile(root, warn)
	if err != nil {
		return nil, err
	}
	return localSearch(name, m), nil
}

// daemonSearch asks the daemon. A text or result that does not fit in one
// socket message is searched in-process instead, with the set definition
// fetched from the daemon: the daemon holds the store lock and may serve
// sets that exist only in its watched files.
func daemonSearch(client *socket.Client, set string, warn io.Writer) searchFunc {
	var local searchFunc
	return func(text string) (*socket.SearchResult, error) {
		if len(text) < socket.MaxMessage {
			res, err := client.Search(set, text)
			if !errors.Is(err, socket.ErrTooLarge) {
				return res, err
			}
			logger.DebugLogger.Printf("%v, searching in-process", err)
		}
		if local == nil {
			def, err := client.Set(set)
			if err != nil {
				return nil, err
			}
			m, err := compileDefinition(def)
			if err != nil {
				return nil, err
			}
			warnRejected(m, warn)
			local = localSearch(set, m)
		}
		return local(text)
	}
}

// compileDefinition rebuilds a daemon set with the daemon's own engine and
// alphabet, so indices and matches agree with a remote search.
func compileDefinition(def *socket.SetResult) (ports.Matcher, error) {
	engine, err := app.ParseEngine(def.Info.Engine)
	if err != nil {
		return nil, err
	}
	set := &patternset.Set{
		Name:        def.Info.Name,
		Description: def.Info.Description,
		Alphabet:    def.Info.Alphabet,
		Fold:        def.Info.Fold,
		Patterns:    def.Patterns,
	}
	start := time.Now()
	m, err := app.Compile(set, engine, def.Info.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", set.Name, err)
	}
	logger.Logger.Printf("compiled %q from daemon: %d patterns, engine %s (%s)", set.Name, m.PatternCount(), engine, time.Since(start))
	return m, nil
}

func localSearch(name string, m ports.Matcher) searchFunc {
	return func(text string) (*socket.SearchResult, error) {
		start := time.Now()
		matches := m.Search(text)
		res := socket.NewSearchResult(name, m, matches)
		res.Elapsed = time.Since(start).String()
		return &res, nil
	}
}
