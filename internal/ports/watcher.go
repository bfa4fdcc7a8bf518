package ports

// Watcher monitors individual files (pattern files, input texts) and reports
// changes so the caller can rebuild its matcher or re-run a search.
// Only one WatchFiles call should be active at a time.
type Watcher interface {
	// WatchFiles starts monitoring the given files. onChange is called with
	// the absolute path of each changed file. The callback may be invoked from
	// any goroutine. Returns an error if a file's directory cannot be watched.
	WatchFiles(paths []string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
