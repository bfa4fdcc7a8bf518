package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/corey/multimatch/internal/app"
	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/spf13/cobra"
)

var (
	inspectQ           query
	inspectTransitions bool
	inspectJSON        bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the compiled automaton: states, failure links, pattern ends",
	Long: "Builds the automaton for a set (or -e/-f patterns) and prints one row per state:\n" +
		"depth, the path spelled from the root, the failure link and the patterns ending there.",
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVarP(&inspectQ.set, "set", "s", "", "Named pattern set (built-in or stored)")
	f.StringArrayVarP(&inspectQ.patterns, "regexp", "e", nil, "Pattern (repeatable)")
	f.StringVarP(&inspectQ.file, "file", "f", "", "Read patterns from file")
	f.StringVar(&inspectQ.alphabet, "alphabet", "", "Alphabet override")
	f.BoolVarP(&inspectQ.fold, "ignore-case", "i", false, "ASCII case folding")
	f.BoolVar(&inspectTransitions, "transitions", false, "Also print each state's transitions that do not fall back to the root")
	f.BoolVar(&inspectJSON, "json", false, "JSON output")
}

// stateRow is one automaton state in the dump.
type stateRow struct {
	ID          int            `json:"id"`
	Depth       int            `json:"depth"`
	Path        string         `json:"path"`
	Link        int            `json:"link"`
	Ends        []int          `json:"ends,omitempty"`
	Transitions map[string]int `json:"transitions,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := inspectQ.validate(); err != nil {
		return err
	}
	q := inspectQ
	q.engine = string(app.EngineAutomaton)
	q.local = true

	m, name, err := q.compile(projectRoot(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a, ok := m.(*automaton.Automaton)
	if !ok {
		return fmt.Errorf("inspect needs the automaton engine, got %T", m)
	}

	rows := dumpStates(a, inspectTransitions)
	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	writeStates(out, name, a, rows)
	return nil
}

// dumpStates lists every state in id order (which is insertion order of the
// trie, so parents precede children).
func dumpStates(a *automaton.Automaton, transitions bool) []stateRow {
	alpha := a.Alphabet()
	rows := make([]stateRow, a.Len())
	for s := 0; s < a.Len(); s++ {
		row := stateRow{
			ID:    s,
			Depth: a.Depth(s),
			Path:  a.Path(s),
			Link:  a.Link(s),
			Ends:  a.Ends(s),
		}
		if transitions {
			for sym := 0; sym < alpha.Size(); sym++ {
				if next := a.Transition(s, sym); next != a.Root() {
					if row.Transitions == nil {
						row.Transitions = make(map[string]int)
					}
					row.Transitions[symbolKey(alpha.Byte(sym))] = next
				}
			}
		}
		rows[s] = row
	}
	return rows
}

func writeStates(w io.Writer, name string, a *automaton.Automaton, rows []stateRow) {
	p := palette(isTerminal(w))
	fmt.Fprintf(w, "%s⚡ %s%s │ %d states │ alphabet %s (%d symbols) │ %d patterns\n",
		p.c(colorBold), name, p.c(colorReset), a.Len(), a.Alphabet().Name(), a.Alphabet().Size(), a.PatternCount())
	for _, pe := range a.Rejected() {
		fmt.Fprintf(w, "  %srejected: %v%s\n", p.c(colorYellow), pe, p.c(colorReset))
	}

	width := 4
	for _, r := range rows {
		if n := len(strconv.Quote(r.Path)); n > width {
			width = n
		}
	}
	fmt.Fprintf(w, "  %5s  %5s  %-*s  %5s  %s\n", "state", "depth", width, "path", "link", "ends")
	for _, r := range rows {
		ends := make([]string, len(r.Ends))
		for i, idx := range r.Ends {
			ends[i] = fmt.Sprintf("%d:%q", idx, a.Pattern(idx))
		}
		fmt.Fprintf(w, "  %5d  %5d  %-*s  %5d  %s%s%s\n",
			r.ID, r.Depth, width, strconv.Quote(r.Path), r.Link,
			p.c(colorGreen), strings.Join(ends, " "), p.c(colorReset))
		if len(r.Transitions) > 0 {
			fmt.Fprintf(w, "  %5s  %s%s%s\n", "", p.c(colorGray), formatTransitions(a, r.Transitions), p.c(colorReset))
		}
	}
}

// formatTransitions renders transitions in alphabet order.
func formatTransitions(a *automaton.Automaton, tr map[string]int) string {
	alpha := a.Alphabet()
	var parts []string
	for sym := 0; sym < alpha.Size(); sym++ {
		key := symbolKey(alpha.Byte(sym))
		if next, ok := tr[key]; ok {
			parts = append(parts, fmt.Sprintf("%s→%d", key, next))
		}
	}
	return strings.Join(parts, " ")
}

// symbolKey spells a byte for display: itself when printable, \xNN otherwise.
func symbolKey(b byte) string {
	if b >= 0x20 && b < 0x7f {
		return string(b)
	}
	return fmt.Sprintf("\\x%02x", b)
}
