package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/adapters/textsource"
	"github.com/spf13/cobra"
)

var (
	searchQ       query
	searchText    string
	searchCount   bool
	searchQuiet   bool
	searchJSON    bool
	searchColor   string
	searchNoColor bool
)

var searchCmd = &cobra.Command{
	Use:   "search [flags] [file ...]",
	Short: "Find every occurrence of a pattern set",
	Long: "Reports, per pattern, every start index where it occurs. Text comes from --text, the\n" +
		"given files (.gz/.bz2/.xz, .html and .md are unpacked to text) or stdin.\n" +
		"Exit status is 0 when something matched, 1 when nothing did, 2 on error.",
	Args:          cobra.ArbitraryArgs,
	RunE:          runSearch,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	f := searchCmd.Flags()
	searchQ.register(f)
	f.StringVarP(&searchText, "text", "t", "", "Search this text instead of files/stdin")
	f.BoolVarP(&searchCount, "count", "c", false, "Count only")
	f.BoolVarP(&searchQuiet, "quiet", "q", false, "Quiet mode (exit code only)")
	f.BoolVar(&searchJSON, "json", false, "One JSON result per input")
	f.StringVar(&searchColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&searchNoColor, "no-color", false, "Suppress color output")
}

// input is one text to search. name is empty for --text and stdin.
type input struct {
	name string
	data []byte
}

// jsonResult is the --json line for one input.
type jsonResult struct {
	File string `json:"file,omitempty"`
	socket.SearchResult
}

func runSearch(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	fail := func(err error) error {
		fmt.Fprintf(stderr, "multimatch: %v\n", err)
		return exitError{2}
	}

	if err := searchQ.validate(); err != nil {
		return fail(err)
	}
	inputs, err := readInputs(cmd.InOrStdin(), searchText, args)
	if err != nil {
		return fail(err)
	}

	var warn io.Writer = stderr
	if searchQuiet {
		warn = nil
	}
	search, err := newSearchFunc(projectRoot(), searchQ, warn)
	if err != nil {
		return fail(err)
	}

	out := cmd.OutOrStdout()
	useColor := resolveColor(cmd.OutOrStdout(), searchColor, searchNoColor)
	found := false
	for _, in := range inputs {
		res, err := search(string(in.data))
		if err != nil {
			return fail(err)
		}
		if res.Total > 0 {
			found = true
		}

		switch {
		case searchQuiet:
			if found {
				return nil
			}
		case searchJSON:
			line, err := json.Marshal(jsonResult{File: in.name, SearchResult: *res})
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(out, string(line))
		default:
			label := ""
			if len(inputs) > 1 {
				label = in.name
			}
			fmt.Fprint(out, formatSearchResult(label, res, searchCount, useColor))
		}
	}

	if !found {
		return exitError{1}
	}
	return nil
}

// readInputs collects the texts to search: --text, else every file, else stdin.
func readInputs(stdin io.Reader, text string, files []string) ([]input, error) {
	if text != "" {
		if len(files) > 0 {
			return nil, errors.New("--text cannot be combined with file arguments")
		}
		return []input{{data: []byte(text)}}, nil
	}

	if len(files) > 0 {
		inputs := make([]input, 0, len(files))
		for _, f := range files {
			data, err := textsource.ReadFile(f)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, input{name: f, data: data})
		}
		return inputs, nil
	}

	if isTerminal(stdin) {
		return nil, errors.New("no input: give files, --text, or pipe text on stdin")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, textsource.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > textsource.MaxSize {
		return nil, fmt.Errorf("stdin exceeds %d bytes", textsource.MaxSize)
	}
	data, err = textsource.Decode("", data)
	if err != nil {
		return nil, err
	}
	return []input{{name: "-", data: data}}, nil
}
