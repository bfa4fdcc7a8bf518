package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/corey/multimatch/internal/adapters/bbolt"
	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/app"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when a bbolt open fails due to lock contention. It distinguishes three
// scenarios: daemon running, stale socket, and unknown lock holder.
func diagnoseDBLock(root string) string {
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "pattern store is locked by the running daemon\n" +
			"  → stop it first:  multimatch daemon stop\n" +
			"  → then retry your command"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("pattern store is locked, daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'multimatch daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "pattern store is locked by another process\n" +
		"  → find the process:  ps aux | grep 'multimatch'\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}

// openStore opens the project's pattern store. Without create, a project that
// has no store yet yields a nil store and no error (built-ins only).
func openStore(root string, create bool) (*bbolt.Store, error) {
	paths := app.NewPaths(root)
	if create {
		if err := paths.EnsureDirs(); err != nil {
			return nil, fmt.Errorf("create %s: %w", paths.Root, err)
		}
	} else if _, err := os.Stat(paths.DB); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	store, err := bbolt.NewStore(paths.DB)
	if err != nil {
		if isDBLockError(err) {
			return nil, errors.New(diagnoseDBLock(root))
		}
		return nil, err
	}
	return store, nil
}

// loadSettings reads .multimatch/config.yaml, defaults when absent.
func loadSettings(root string) (app.Settings, error) {
	return app.LoadSettings(app.NewPaths(root).Config)
}
