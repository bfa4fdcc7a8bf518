package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/adapters/web"
	"github.com/corey/multimatch/internal/app"
	"github.com/spf13/cobra"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: "Shows project root, store, socket, settings and daemon status. No daemon required.\n" +
		"With --init, writes the default .multimatch/config.yaml if none exists.",
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write the default config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	out := cmd.OutOrStdout()

	if configInit {
		if _, err := os.Stat(paths.Config); err == nil {
			return fmt.Errorf("%s already exists", paths.Config)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := app.DefaultSettings().Save(paths.Config); err != nil {
			return err
		}
		fmt.Fprintf(out, "⚡ wrote %s\n", paths.Config)
		return nil
	}

	settings, err := app.LoadSettings(paths.Config)
	if err != nil {
		return err
	}

	p := palette(isTerminal(cmd.OutOrStdout()))
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := fmt.Sprintf("%s✗ not running%s", p.c(colorYellow), p.c(colorReset))
	if daemonRunning {
		daemonStatus = fmt.Sprintf("%s✓ running%s", p.c(colorGreen), p.c(colorReset))
	}
	configFile := paths.Config
	if _, err := os.Stat(configFile); err != nil {
		configFile += " (defaults)"
	}
	watch := "(none)"
	if len(settings.Watch) > 0 {
		watch = strings.Join(settings.Watch, ", ")
	}

	fmt.Fprintf(out, "%s⚡ multimatch config%s\n", p.c(colorBold), p.c(colorReset))
	fmt.Fprintf(out, "  Root:       %s\n", root)
	fmt.Fprintf(out, "  Config:     %s\n", configFile)
	fmt.Fprintf(out, "  Store:      %s\n", paths.DB)
	fmt.Fprintf(out, "  Socket:     %s\n", sockPath)
	fmt.Fprintf(out, "  Daemon:     %s\n", daemonStatus)
	if daemonRunning {
		if port, err := web.ReadPort(paths.HTTPPort); err == nil {
			fmt.Fprintf(out, "  HTTP API:   http://localhost:%d/api\n", port)
		}
	}
	fmt.Fprintf(out, "  Alphabet:   %s\n", settings.Alphabet)
	fmt.Fprintf(out, "  Engine:     %s\n", settings.Engine)
	fmt.Fprintf(out, "  Watch:      %s\n", watch)
	fmt.Fprintf(out, "  HTTP:       %v\n", settings.HTTP)
	return nil
}
