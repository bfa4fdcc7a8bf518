package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show whether the daemon is up, and what it serves",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "Print the health report as JSON")
}

func runHealth(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client := socket.NewClient(socket.SocketPath(projectRoot()))

	h := &socket.HealthResult{Status: "not running"}
	if client.Ping() {
		var err error
		if h, err = client.Health(); err != nil {
			return err
		}
	}

	switch {
	case healthJSON:
		data, err := json.Marshal(h)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case h.Status == "not running":
		fmt.Fprintln(out, "⚡ multimatch daemon is not running")
	default:
		fmt.Fprint(out, formatHealth(h, isTerminal(out)))
	}
	return nil
}
