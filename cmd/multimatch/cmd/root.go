package cmd

import (
	"fmt"
	"os"

	"github.com/corey/multimatch/internal/logger"
	"github.com/spf13/cobra"
)

var (
	rootDir   string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "multimatch",
	Short: "multimatch: multi-pattern text search",
	Long:  "Finds every occurrence of a set of patterns in one pass over the text (Aho-Corasick).",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbosity > 0 {
			logger.Enable(cmd.ErrOrStderr(), verbosity > 1)
		}
	},
}

// projectRoot returns the project root (--root, or cwd by default).
func projectRoot() string {
	if rootDir != "" {
		return rootDir
	}
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	return dir
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootDir, "root", "", "Project root holding .multimatch/ (default: current directory)")
	pf.CountVarP(&verbosity, "verbose", "v", "Log to stderr (-vv adds debug detail)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(setsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(inspectCmd)
}
