package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corey/multimatch/internal/adapters/socket"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

// palette hands out color codes, or empty strings when color is off.
type palette bool

func (p palette) c(code string) string {
	if p {
		return code
	}
	return ""
}

// formatSearchResult formats one text's matches for terminal display.
// Patterns come in index order; a pattern listed twice in the set is printed
// once with the merged positions.
//
//	⚡ 4 matches │ classic │ 12µs
//	  Pattern "he" found at indices: 2 5
//	  Pattern "she" found at indices: 1
func formatSearchResult(label string, result *socket.SearchResult, countOnly, useColor bool) string {
	p := palette(useColor)
	var sb strings.Builder

	if label != "" {
		sb.WriteString(fmt.Sprintf("%s%s%s: ", p.c(colorCyan), label, p.c(colorReset)))
	}
	sb.WriteString(fmt.Sprintf("%s⚡ %d matches%s │ %s │ %s\n",
		p.c(colorBold), result.Total, p.c(colorReset), result.Set, result.Elapsed))
	if countOnly {
		return sb.String()
	}

	if result.Total == 0 {
		sb.WriteString("  No matches found.\n")
		return sb.String()
	}

	byText := result.ToMatches().ByText(func(idx int) string {
		for _, h := range result.Matches {
			if h.Index == idx {
				return h.Pattern
			}
		}
		return ""
	})
	printed := make(map[string]bool, len(byText))
	for _, hit := range result.Matches {
		if printed[hit.Pattern] {
			continue
		}
		printed[hit.Pattern] = true
		sb.WriteString(fmt.Sprintf("  Pattern %s%q%s found at indices: %s\n",
			p.c(colorGreen), hit.Pattern, p.c(colorReset), joinInts(byText[hit.Pattern])))
	}
	return sb.String()
}

// formatSets formats set summaries as an aligned table.
func formatSets(infos []socket.SetInfo, useColor bool) string {
	p := palette(useColor)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d sets%s\n", p.c(colorBold), len(infos), p.c(colorReset)))

	width := 0
	for _, info := range infos {
		if len(info.Name) > width {
			width = len(info.Name)
		}
	}
	for _, info := range infos {
		fold := ""
		if info.Fold {
			fold = " fold"
		}
		sb.WriteString(fmt.Sprintf("  %s%-*s%s  %4d patterns  %s%s%s%s  %s%s%s\n",
			p.c(colorCyan), width, info.Name, p.c(colorReset),
			info.Patterns,
			p.c(colorMagenta), info.Alphabet, fold, p.c(colorReset),
			p.c(colorGray), info.Source, p.c(colorReset)))
		if info.Description != "" {
			sb.WriteString(fmt.Sprintf("  %-*s  %s\n", width, "", info.Description))
		}
	}
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult, useColor bool) string {
	p := palette(useColor)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ multimatch daemon%s\n", p.c(colorBold), p.c(colorReset)))
	sb.WriteString(fmt.Sprintf("  Status:  %s%s%s\n", p.c(colorGreen), h.Status, p.c(colorReset)))
	sb.WriteString(fmt.Sprintf("  Sets:    %d\n", h.SetCount))
	sb.WriteString(fmt.Sprintf("  Engine:  %s\n", h.Engine))
	sb.WriteString(fmt.Sprintf("  Uptime:  %s\n", h.Uptime))
	return sb.String()
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
