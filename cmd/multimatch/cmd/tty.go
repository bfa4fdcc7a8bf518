package cmd

import (
	"io"
	"os"
)

// isTerminal reports whether stream is a terminal. Buffers and pipes are not.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// resolveColor decides whether output to out is colored. colorFlag is the
// --color value ("auto", "always" or "never"); --no-color and a non-empty
// NO_COLOR override it.
func resolveColor(out io.Writer, colorFlag string, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch colorFlag {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTerminal(out)
	}
}
