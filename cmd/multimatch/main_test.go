package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/corey/multimatch/internal/adapters/socket"
)

// mmBin is the path to the compiled binary, set by TestMain.
var mmBin string

func TestMain(m *testing.M) {
	// Build binary once for all tests.
	tmp, err := os.MkdirTemp("", "multimatch-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	mmBin = filepath.Join(tmp, "multimatch")
	cmd := exec.Command("go", "build", "-o", mmBin, "./cmd/multimatch/")
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.RemoveAll(tmp)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

// findModuleRoot walks up from cwd to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("go.mod not found")
		}
		dir = parent
	}
}

// runMM executes the binary rooted at dir and returns stdout, stderr and the exit code.
func runMM(t *testing.T, dir, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(mmBin, append([]string{"--root", dir}, args...)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	cmd.Stdin = strings.NewReader(stdin)

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("exec error (not ExitError): %v", err)
		}
	}
	return
}

// startDaemon runs `multimatch daemon start` in the background and waits for
// its socket. The returned func stops it and reports the process exit error.
func startDaemon(t *testing.T, dir string) func() error {
	t.Helper()
	cmd := exec.Command(mmBin, "--root", dir, "daemon", "start")
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	if err := cmd.Start(); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	client := socket.NewClient(socket.SocketPath(dir))
	deadline := time.Now().Add(5 * time.Second)
	for !client.Ping() {
		if time.Now().After(deadline) {
			cmd.Process.Kill()
			t.Fatal("daemon did not come up within 5s")
		}
		time.Sleep(20 * time.Millisecond)
	}

	var stopped bool
	var exitErr error
	stop := func() error {
		if stopped {
			return exitErr
		}
		stopped = true
		runMM(t, dir, "", "daemon", "stop")
		select {
		case exitErr = <-done:
		case <-time.After(5 * time.Second):
			// Safety net: force-kill if still alive.
			cmd.Process.Kill()
			exitErr = <-done
			if exitErr == nil {
				exitErr = fmt.Errorf("daemon killed after stop timeout")
			}
		}
		return exitErr
	}
	t.Cleanup(func() { stop() })
	return stop
}

// holdDBLock uses flock(1) to hold an exclusive lock on the bbolt file,
// simulating an orphaned process. Returns cleanup func.
func holdDBLock(t *testing.T, dbPath string) func() {
	t.Helper()
	if _, err := exec.LookPath("flock"); err != nil {
		t.Skip("flock(1) not available")
	}
	cmd := exec.Command("flock", "-x", dbPath, "-c", "sleep 60")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		t.Fatalf("flock: %v", err)
	}
	// Give flock time to acquire the lock.
	time.Sleep(200 * time.Millisecond)
	return func() {
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			cmd.Wait()
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"match", []string{"search", "-s", "classic", "--text", "ushers"}, 0},
		{"no match", []string{"search", "-s", "classic", "--text", "xyz"}, 1},
		{"quiet match", []string{"search", "-q", "-e", "ab", "--text", "cab"}, 0},
		{"no patterns", []string{"search", "--text", "ushers"}, 2},
		{"unknown set", []string{"search", "-s", "nope", "--text", "ushers"}, 2},
		{"missing input file", []string{"search", "-e", "he", "no-such-file.txt"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, exit := runMM(t, t.TempDir(), "", tt.args...)
			if exit != tt.want {
				t.Errorf("exit %d, want %d (stderr: %s)", exit, tt.want, stderr)
			}
		})
	}
}

func TestSearch_Stdin(t *testing.T) {
	stdout, _, exit := runMM(t, t.TempDir(), "ahishers", "search", "-s", "classic")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	for _, want := range []string{
		"4 matches",
		`Pattern "he" found at indices: 4`,
		`Pattern "she" found at indices: 3`,
		`Pattern "his" found at indices: 1`,
		`Pattern "hers" found at indices: 4`,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Errorf("NO_COLOR output should carry no escapes:\n%q", stdout)
	}
}

func TestSets_AddSearchRemove(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fruit.txt"), "apple\npear\n")

	if _, stderr, exit := runMM(t, dir, "", "sets", "add", "fruit", "fruit.txt"); exit != 0 {
		t.Fatalf("sets add exit %d: %s", exit, stderr)
	}
	stdout, _, exit := runMM(t, dir, "", "search", "-s", "fruit", "--text", "appear")
	if exit != 0 {
		t.Fatalf("search exit %d", exit)
	}
	if !strings.Contains(stdout, `Pattern "pear" found at indices: 2`) {
		t.Errorf("stored set should match:\n%s", stdout)
	}

	if _, stderr, exit := runMM(t, dir, "", "sets", "rm", "fruit"); exit != 0 {
		t.Fatalf("sets rm exit %d: %s", exit, stderr)
	}
	if _, _, exit := runMM(t, dir, "", "search", "-s", "fruit", "--text", "appear"); exit != 2 {
		t.Errorf("search of removed set exit %d, want 2", exit)
	}
}

func TestDaemon_StartStop(t *testing.T) {
	dir := t.TempDir()
	stop := startDaemon(t, dir)

	sockPath := socket.SocketPath(dir)
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Error("socket file not created after start")
	}
	pidFile := filepath.Join(dir, ".multimatch", "run", "daemon.pid")
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		t.Error("PID file not created after start")
	}

	stdout, _, exit := runMM(t, dir, "", "health")
	if exit != 0 {
		t.Fatalf("health exit %d", exit)
	}
	if !strings.Contains(stdout, "Sets:") {
		t.Errorf("health should show the set count:\n%s", stdout)
	}

	stdout, _, _ = runMM(t, dir, "", "daemon", "start")
	if !strings.Contains(stdout, "already running") {
		t.Errorf("second start should say 'already running':\n%s", stdout)
	}

	if err := stop(); err != nil {
		t.Fatalf("daemon exited with %v", err)
	}

	if _, err := os.Stat(sockPath); err == nil {
		t.Error("socket file should be removed after stop")
	}
	if _, err := os.Stat(pidFile); err == nil {
		t.Error("PID file should be removed after stop")
	}

	// The store lock is released with the process.
	writeFile(t, filepath.Join(dir, "w.txt"), "w\n")
	if _, stderr, exit := runMM(t, dir, "", "sets", "add", "w", "w.txt"); exit != 0 {
		t.Fatalf("sets add after stop exit %d: %s", exit, stderr)
	}

	stdout, _, _ = runMM(t, dir, "", "health")
	if !strings.Contains(stdout, "not running") {
		t.Errorf("health should say 'not running' after stop:\n%s", stdout)
	}
}

func TestDaemon_StoreLockedWhileRunning(t *testing.T) {
	dir := t.TempDir()
	startDaemon(t, dir)
	writeFile(t, filepath.Join(dir, "w.txt"), "w\n")

	_, stderr, exit := runMM(t, dir, "", "sets", "add", "w", "w.txt")
	if exit == 0 {
		t.Fatal("sets add should fail while the daemon holds the store")
	}
	if !strings.Contains(stderr, "multimatch daemon stop") {
		t.Errorf("error should suggest stopping the daemon:\n%s", stderr)
	}
}

func TestDaemon_StopNotRunning(t *testing.T) {
	stdout, _, exit := runMM(t, t.TempDir(), "", "daemon", "stop")
	if exit != 0 {
		t.Fatalf("stop (not running) exit %d", exit)
	}
	if !strings.Contains(stdout, "not running") {
		t.Errorf("should say 'not running':\n%s", stdout)
	}
}

func TestDaemon_StopStaleSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := socket.SocketPath(dir)

	// A socket file with no listener behind it.
	if err := os.WriteFile(sockPath, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(sockPath)

	stdout, _, exit := runMM(t, dir, "", "daemon", "stop")
	if exit != 0 {
		t.Fatalf("stop (stale socket) exit %d", exit)
	}
	if !strings.Contains(stdout, "stale") {
		t.Errorf("should mention 'stale':\n%s", stdout)
	}
	if _, err := os.Stat(sockPath); err == nil {
		t.Error("stale socket should be removed")
	}
}

func TestStore_LockedByOtherProcess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "w.txt"), "w\n")
	if _, stderr, exit := runMM(t, dir, "", "sets", "add", "w", "w.txt"); exit != 0 {
		t.Fatalf("sets add exit %d: %s", exit, stderr)
	}

	release := holdDBLock(t, filepath.Join(dir, ".multimatch", "multimatch.db"))
	defer release()

	for _, args := range [][]string{
		{"sets", "rm", "w"},
		{"daemon", "start"},
	} {
		start := time.Now()
		_, stderr, exit := runMM(t, dir, "", args...)
		elapsed := time.Since(start)

		if exit == 0 {
			t.Fatalf("%v should fail when the store is locked", args)
		}
		if elapsed > 3*time.Second {
			t.Errorf("%v should fail fast, took %v", args, elapsed)
		}
		if !strings.Contains(stderr, "locked by another process") {
			t.Errorf("%v error should name the lock:\n%s", args, stderr)
		}
	}
}
