package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	fsw "github.com/corey/multimatch/internal/adapters/fsnotify"
	"github.com/corey/multimatch/internal/adapters/textsource"
	"github.com/spf13/cobra"
)

var (
	watchQ       query
	watchCount   bool
	watchColor   string
	watchNoColor bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] file...",
	Short: "Re-run a search whenever the text or pattern file changes",
	Long: "Searches each file once, then again every time it is written. When the patterns\n" +
		"come from -f, editing that file recompiles them and searches every file again.",
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	watchQ.register(f)
	f.BoolVarP(&watchCount, "count", "c", false, "Count only")
	f.StringVar(&watchColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&watchNoColor, "no-color", false, "Suppress color output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchQ.validate(); err != nil {
		return err
	}

	sess, err := newWatchSession(projectRoot(), watchQ, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sess.color = resolveColor(cmd.OutOrStdout(), watchColor, watchNoColor)
	sess.countOnly = watchCount
	if err := sess.rebuild(); err != nil {
		return err
	}
	sess.searchAll()

	w, err := fsw.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.WatchFiles(sess.watchPaths(), sess.onChange); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.ErrOrStderr(), "⚡ watching %d files (Ctrl-C to stop)\n", len(sess.watchPaths()))
	<-sigCh
	return nil
}

// watchSession re-runs one query over a fixed list of files. Change
// callbacks may arrive concurrently for different files; mu serializes them
// so output blocks never interleave.
type watchSession struct {
	root      string
	q         query
	out       io.Writer
	errOut    io.Writer
	color     bool
	countOnly bool

	patternFile string            // absolute path of -f, if any
	files       []string          // absolute paths, argument order
	names       map[string]string // absolute path -> name as given

	mu     sync.Mutex
	search searchFunc
}

func newWatchSession(root string, q query, files []string, out, errOut io.Writer) (*watchSession, error) {
	s := &watchSession{
		root:   root,
		q:      q,
		out:    out,
		errOut: errOut,
		names:  make(map[string]string, len(files)),
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		s.files = append(s.files, abs)
		s.names[abs] = f
	}
	if q.file != "" {
		abs, err := filepath.Abs(q.file)
		if err != nil {
			return nil, err
		}
		s.patternFile = abs
	}
	return s, nil
}

func (s *watchSession) watchPaths() []string {
	paths := append([]string(nil), s.files...)
	if s.patternFile != "" {
		paths = append(paths, s.patternFile)
	}
	return paths
}

// rebuild compiles the query again.
func (s *watchSession) rebuild() error {
	search, err := newSearchFunc(s.root, s.q, s.errOut)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.search = search
	s.mu.Unlock()
	return nil
}

func (s *watchSession) searchAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		s.searchLocked(f)
	}
}

func (s *watchSession) searchLocked(abs string) {
	name := s.names[abs]
	data, err := textsource.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(s.errOut, "%s: removed\n", name)
			return
		}
		fmt.Fprintf(s.errOut, "%s: %v\n", name, err)
		return
	}
	res, err := s.search(string(data))
	if err != nil {
		fmt.Fprintf(s.errOut, "%s: %v\n", name, err)
		return
	}
	fmt.Fprint(s.out, formatSearchResult(name, res, s.countOnly, s.color))
}

// onChange handles a debounced change of any watched file.
func (s *watchSession) onChange(path string) {
	if path == s.patternFile {
		if err := s.rebuild(); err != nil {
			// Keep matching with the previous patterns until the file is fixed.
			fmt.Fprintf(s.errOut, "%s: %v (keeping previous patterns)\n", s.q.file, err)
			return
		}
		s.searchAll()
		return
	}
	if _, ok := s.names[path]; !ok {
		return
	}
	s.mu.Lock()
	s.searchLocked(path)
	s.mu.Unlock()
}
