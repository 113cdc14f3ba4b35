package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/opconvert/internal/cli/config"
	"github.com/conduit-lang/opconvert/internal/cli/ui"
	"github.com/conduit-lang/opconvert/internal/converter/pattern"
	"github.com/conduit-lang/opconvert/internal/patternstore"
)

type patternsOptions struct {
	minLength int
	maxLength int
	threshold int
	all       bool
	store     string
	library   bool
	limit     int
}

func newPatternsCommand(global *globalOptions) *cobra.Command {
	opts := &patternsOptions{}

	cmd := &cobra.Command{
		Use:   "patterns <graph.json>",
		Short: "List repeated operator sequences in a graph",
		Long: `Scan the operator sequence of a graph for repeated runs of operators.

Patterns occurring at least --threshold times are assigned module names,
longest first.

With --store, named patterns are also recorded in a SQLite pattern library.
With --library, the library is listed instead of scanning a graph.

Examples:
  opconvert patterns model.json
  opconvert patterns model.json --min 3 --max 6
  opconvert patterns model.json --all
  opconvert patterns model.json --store patterns.db
  opconvert patterns --library --store patterns.db`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.library {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.library {
				return runLibrary(cmd, global, opts)
			}
			return runPatterns(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.minLength, "min", 0, "Minimum pattern length (default from config)")
	cmd.Flags().IntVar(&opts.maxLength, "max", 0, "Maximum pattern length (default from config)")
	cmd.Flags().IntVar(&opts.threshold, "threshold", 0, "Occurrences needed for a module name (default from config)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Also list patterns below the threshold")
	cmd.Flags().StringVar(&opts.store, "store", "", "Pattern library database (default from config)")
	cmd.Flags().BoolVar(&opts.library, "library", false, "List the patterns recorded in the library")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum library entries to list")

	return cmd
}

func runPatterns(cmd *cobra.Command, global *globalOptions, opts *patternsOptions, source string) error {
	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	scan := pattern.ScanOptions{MinLength: cfg.Pattern.MinLength, MaxLength: cfg.Pattern.MaxLength}
	if opts.minLength > 0 {
		scan.MinLength = opts.minLength
	}
	if opts.maxLength > 0 {
		scan.MaxLength = opts.maxLength
	}
	threshold := cfg.Pattern.ReuseThreshold
	if opts.threshold > 0 {
		threshold = opts.threshold
	}

	g, err := readGraph(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}
	scan.Degrees = g.Degrees

	tracker := pattern.NewTracker()
	if err := pattern.Scan(tracker, g.OpTypes(), scan); err != nil {
		return err
	}
	named := pattern.AssignModuleNames(tracker.Patterns(), threshold)

	if path := storePath(cfg, opts.store); path != "" && len(named) > 0 {
		if err := recordPatterns(cmd.Context(), path, g.Name, uuid.New().String(), named); err != nil {
			return err
		}
		logger.Info("recorded patterns", zap.String("store", path), zap.Int("patterns", len(named)))
	}

	rows := named
	if opts.all {
		rows = append(rows, unnamed(tracker.Patterns())...)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprint(out, ui.Info(fmt.Sprintf("No operator sequence repeats %d or more times", threshold), global.noColor))
		return nil
	}

	table := ui.NewTable(out, global.noColor, "MODULE", "PATTERN", "LEN", "COUNT", "IN", "OUT", "OCCURRENCES")
	for _, p := range rows {
		table.AddRow(
			p.ModuleName,
			p.Pattern,
			fmt.Sprintf("%d", p.Length),
			fmt.Sprintf("%d", p.Count),
			fmt.Sprintf("%d", p.InDegree),
			fmt.Sprintf("%d", p.OutDegree),
			occurrences(p),
		)
	}
	table.Render()
	return nil
}

func runLibrary(cmd *cobra.Command, global *globalOptions, opts *patternsOptions) error {
	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := storePath(cfg, opts.store)
	if path == "" {
		return fmt.Errorf("no pattern library configured (use --store or pattern.store)")
	}

	store, err := patternstore.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Top(cmd.Context(), opts.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprint(out, ui.Info(fmt.Sprintf("Pattern library %s is empty", path), global.noColor))
		return nil
	}

	table := ui.NewTable(out, global.noColor, "PATTERN", "LEN", "IN", "OUT", "OCCURRENCES", "GRAPHS")
	for _, e := range entries {
		table.AddRow(
			e.Key.Pattern,
			fmt.Sprintf("%d", e.Length),
			fmt.Sprintf("%d", e.Key.InDegree),
			fmt.Sprintf("%d", e.Key.OutDegree),
			fmt.Sprintf("%d", e.Occurrences),
			fmt.Sprintf("%d", e.Graphs),
		)
	}
	table.Render()
	return nil
}

func storePath(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Pattern.Store
}

// recordPatterns appends one conversion's named patterns to the library
func recordPatterns(ctx context.Context, path, graphName, sessionID string, patterns []*pattern.Pattern) error {
	store, err := patternstore.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, graphName, sessionID, patterns)
}

func unnamed(patterns []*pattern.Pattern) []*pattern.Pattern {
	var out []*pattern.Pattern
	for _, p := range patterns {
		if p.ModuleName == "" {
			out = append(out, p)
		}
	}
	return out
}

func occurrences(p *pattern.Pattern) string {
	parts := make([]string, 0, p.Count)
	for _, occ := range p.Occurrences() {
		parts = append(parts, fmt.Sprintf("%d-%d", occ[0], occ[1]))
	}
	return strings.Join(parts, " ")
}
