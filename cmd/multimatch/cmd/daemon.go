package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/app"
	"github.com/corey/multimatch/internal/logger"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the multimatch daemon",
	Long:  "The daemon keeps every set compiled and serves searches over a Unix socket.",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (foreground)",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

var daemonReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Recompile every set in the running daemon",
	RunE:  runDaemonReload,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonReloadCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)
	out := cmd.OutOrStdout()

	// Check if already running
	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Fprintln(out, "⚡ daemon already running")
		return nil
	}

	paths := app.NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}
	logFile, err := os.OpenFile(paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()
	logger.Enable(logFile, verbosity > 1)

	a, err := app.New(app.Config{ProjectRoot: root, SockPath: sockPath})
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("init: %s", diagnoseDBLock(root))
		}
		return fmt.Errorf("init: %w", err)
	}

	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}

	fmt.Fprintf(out, "⚡ multimatch daemon started at %s (%d sets, log %s)\n", sockPath, a.Registry.Len(), paths.DaemonLog)

	// Wait for a signal or a shutdown request over the socket
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Fprintln(out, "\n⚡ shutting down...")
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)

	if !client.Ping() {
		if _, err := os.Stat(sockPath); err == nil {
			if err := os.Remove(sockPath); err != nil {
				return fmt.Errorf("remove stale socket: %w", err)
			}
			app.NewPaths(root).CleanEphemeral()
			fmt.Fprintf(cmd.OutOrStdout(), "⚡ daemon is not running (removed stale socket %s)\n", sockPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "⚡ daemon stopped")
	return nil
}

func runDaemonReload(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if !client.Ping() {
		return fmt.Errorf("daemon is not running (start with: multimatch daemon start)")
	}

	res, err := client.Reload()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚡ reloaded %d sets in %dms\n", res.SetCount, res.ElapsedMs)
	for _, name := range res.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %s\n", name)
	}
	return nil
}
