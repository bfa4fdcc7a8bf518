// multimatch finds every occurrence of many patterns in one pass over a text.
// Single binary: ad-hoc searches, stored pattern sets, and an optional daemon
// that keeps compiled automatons warm.
package main

import (
	"os"

	"github.com/corey/multimatch/cmd/multimatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code := cmd.ExitCode(err); code >= 0 {
			os.Exit(code)
		}
		os.Exit(2)
	}
}
