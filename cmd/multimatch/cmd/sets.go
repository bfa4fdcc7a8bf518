package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/app"
	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/ports"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	setsAddDescription string
	setsAddAlphabet    string
	setsAddFold        bool
	setsShowYAML       bool
	setsColor          string
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Manage named pattern sets",
}

var setsListCmd = &cobra.Command{
	Use:   "list [glob]",
	Short: "List built-in and stored sets",
	Long:  "Lists sets, optionally filtered by a glob ('*' and '?'). Asks the daemon when it is running.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSetsList,
}

var setsAddCmd = &cobra.Command{
	Use:   "add NAME FILE",
	Short: "Store a pattern set read from FILE",
	Long:  "FILE is a YAML set or a plain list, one pattern per line ('#' starts a comment).",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetsAdd,
}

var setsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a set's patterns",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetsShow,
}

var setsRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove"},
	Short:   "Delete a stored set",
	Args:    cobra.ExactArgs(1),
	RunE:    runSetsRm,
}

func init() {
	setsCmd.PersistentFlags().StringVar(&setsColor, "color", "auto", "Color output: auto, always, never")

	setsAddCmd.Flags().StringVarP(&setsAddDescription, "description", "d", "", "One-line description")
	setsAddCmd.Flags().StringVar(&setsAddAlphabet, "alphabet", "", "Alphabet the set is matched under")
	setsAddCmd.Flags().BoolVarP(&setsAddFold, "ignore-case", "i", false, "Match the set case-insensitively")
	setsShowCmd.Flags().BoolVar(&setsShowYAML, "yaml", false, "Print the set as YAML (re-importable with sets add)")

	setsCmd.AddCommand(setsListCmd)
	setsCmd.AddCommand(setsAddCmd)
	setsCmd.AddCommand(setsShowCmd)
	setsCmd.AddCommand(setsRmCmd)
}

func runSetsList(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	glob := ""
	if len(args) == 1 {
		glob = args[0]
	}

	var infos []socket.SetInfo
	client := socket.NewClient(socket.SocketPath(root))
	if client.Ping() {
		res, err := client.Sets()
		if err != nil {
			return err
		}
		infos = res.Sets
	} else {
		var err error
		if infos, err = localSetInfos(root); err != nil {
			return err
		}
	}

	keep := make(map[string]bool)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	for _, n := range patternset.Filter(names, glob) {
		keep[n] = true
	}
	filtered := infos[:0]
	for _, info := range infos {
		if keep[info.Name] {
			filtered = append(filtered, info)
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), formatSets(filtered, resolveColor(cmd.OutOrStdout(), setsColor, false)))
	return nil
}

// localSetInfos compiles every built-in and stored set to summarize it,
// the way the daemon would.
func localSetInfos(root string) ([]socket.SetInfo, error) {
	settings, err := loadSettings(root)
	if err != nil {
		return nil, err
	}
	engine, err := app.ParseEngine(settings.Engine)
	if err != nil {
		return nil, err
	}

	store, err := openStore(root, false)
	if err != nil {
		return nil, err
	}
	var ss ports.SetStore
	if store != nil {
		defer store.Close()
		ss = store
	}

	names, err := app.ListAll(ss)
	if err != nil {
		return nil, err
	}
	reg := app.NewRegistry(engine, settings.Alphabet)
	for _, name := range names {
		set, origin, err := app.ResolveSet(ss, name)
		if err != nil {
			return nil, err
		}
		if err := reg.Put(set, origin); err != nil {
			return nil, err
		}
	}
	return reg.SetInfos(), nil
}

func runSetsAdd(cmd *cobra.Command, args []string) error {
	name, file := args[0], args[1]
	set, err := patternset.LoadFile(file)
	if err != nil {
		return err
	}
	set.Name = name
	if setsAddDescription != "" {
		set.Description = setsAddDescription
	}
	if setsAddAlphabet != "" {
		set.Alphabet = setsAddAlphabet
	}
	if setsAddFold {
		set.Fold = true
	}
	if abs, err := filepath.Abs(file); err == nil {
		set.Source = abs
	}
	if err := set.Validate(); err != nil {
		return err
	}
	if len(set.Patterns) == 0 {
		return fmt.Errorf("%s: %w", file, patternset.ErrNoPatterns)
	}

	store, err := openStore(projectRoot(), true)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveSet(set.Stored(time.Now())); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "⚡ stored set %q (%d patterns)\n", set.Name, len(set.Patterns))
	return nil
}

func runSetsShow(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	store, err := openStore(root, false)
	if err != nil {
		return err
	}
	var ss ports.SetStore
	if store != nil {
		defer store.Close()
		ss = store
	}

	set, origin, err := app.ResolveSet(ss, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if setsShowYAML {
		data, err := yaml.Marshal(set)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	p := palette(resolveColor(cmd.OutOrStdout(), setsColor, false))
	fmt.Fprintf(out, "%s⚡ %s%s  %s%s%s\n", p.c(colorBold), set.Name, p.c(colorReset), p.c(colorGray), origin, p.c(colorReset))
	if set.Description != "" {
		fmt.Fprintf(out, "  %s\n", set.Description)
	}
	alpha := set.Alphabet
	if alpha == "" {
		alpha = "(default)"
	}
	fmt.Fprintf(out, "  Alphabet:  %s\n", alpha)
	fmt.Fprintf(out, "  Fold:      %v\n", set.Fold)
	if set.Source != "" {
		fmt.Fprintf(out, "  Source:    %s\n", set.Source)
	}
	for i, pat := range set.Patterns {
		fmt.Fprintf(out, "  %s%3d%s  %s\n", p.c(colorGray), i, p.c(colorReset), pat)
	}
	return nil
}

func runSetsRm(cmd *cobra.Command, args []string) error {
	name := args[0]
	root := projectRoot()
	store, err := openStore(root, false)
	if err != nil {
		return err
	}
	if store == nil {
		return notStored(name)
	}
	defer store.Close()

	st, err := store.LoadSet(name)
	if err != nil {
		return err
	}
	if st == nil {
		return notStored(name)
	}
	if err := store.DeleteSet(name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚡ removed set %q\n", name)
	return nil
}

func notStored(name string) error {
	if _, origin, err := app.ResolveSet(nil, name); err == nil && origin == app.OriginBuiltin {
		return fmt.Errorf("set %q is built in and cannot be removed", name)
	}
	return fmt.Errorf("%w: %s", app.ErrSetNotFound, name)
}
