package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/opconvert/internal/cache"
	"github.com/conduit-lang/opconvert/internal/cli/config"
	"github.com/conduit-lang/opconvert/internal/cli/ui"
	"github.com/conduit-lang/opconvert/internal/cli/watch"
	"github.com/conduit-lang/opconvert/internal/converter/codegen"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/mapper"
)

type convertOptions struct {
	outputDir     string
	className     string
	onUnsupported string
	stdout        bool
	jsonErrors    bool
	watch         bool
}

func newConvertCommand(global *globalOptions) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <graph.json>",
		Short: "Convert an operator graph to a MindSpore nn.Cell",
		Long: `Convert an exported operator graph (JSON) to MindSpore source.

Use "-" to read the graph from stdin.

Examples:
  opconvert convert model.json
  opconvert convert model.json --class-name ResNet -o gen
  opconvert convert model.json --on-unsupported prompt
  opconvert convert model.json --watch
  cat model.json | opconvert convert - --stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&opts.className, "class-name", "", "Generated class name (default from config)")
	cmd.Flags().StringVar(&opts.onUnsupported, "on-unsupported", "", "Unsupported node policy: abort, skip or prompt")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Write the generated source to stdout")
	cmd.Flags().BoolVar(&opts.jsonErrors, "json", false, "Report diagnostics as JSON")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Convert again whenever the graph file changes")

	return cmd
}

func runConvert(cmd *cobra.Command, global *globalOptions, opts *convertOptions, source string) error {
	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.className != "" {
		cfg.Output.ClassName = opts.className
	}
	if opts.onUnsupported != "" {
		cfg.Convert.OnUnsupported = opts.onUnsupported
	}

	policy, err := codegen.ParsePolicy(cfg.Convert.OnUnsupported)
	if err != nil {
		return err
	}

	registry := mapper.NewRegistry()
	genOpts := codegen.Options{
		Policy:           policy,
		MinPatternLength: cfg.Pattern.MinLength,
		MaxPatternLength: cfg.Pattern.MaxLength,
		ReuseThreshold:   cfg.Pattern.ReuseThreshold,
	}
	if policy == codegen.PolicyPrompt {
		genOpts.Resolver = newPromptResolver(cmd.ErrOrStderr(), registry.SupportedOps(), global.noColor)
	}

	// Prompt answers are not part of the key, and a hit would skip pattern
	// recording, so both bypass the cache
	var store cache.Cache
	if policy != codegen.PolicyPrompt && cfg.Pattern.Store == "" {
		store, err = openCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
	}

	c := &conversion{
		cmd:       cmd,
		cache:     store,
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		generator: codegen.NewGenerator(registry, logger, genOpts),
		opts:      opts,
		noColor:   global.noColor,
		source:    source,
	}

	if !opts.watch {
		return c.run()
	}

	if source == "-" {
		return fmt.Errorf("--watch needs a graph file, not stdin")
	}
	if err := c.run(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Warning(err.Error(), global.noColor))
	}

	fw, err := watch.NewFileWatcher([]string{source}, logger, func([]string) error {
		return c.run()
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.Info(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", source), global.noColor))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return fw.Run(ctx)
}

// conversion is one configured convert invocation, run once or on every
// change of the source graph
type conversion struct {
	cmd       *cobra.Command
	cfg       *config.Config
	logger    *zap.Logger
	cache     cache.Cache
	registry  *mapper.Registry
	generator *codegen.Generator
	opts      *convertOptions
	noColor   bool
	source    string
}

func (c *conversion) run() error {
	data, err := readSource(c.cmd.InOrStdin(), c.source)
	if err != nil {
		return err
	}

	key := c.cacheKey(data)
	if src, ok := c.cached(key); ok {
		return c.write(src, func(path string) {
			ui.WriteSuccess(c.cmd.OutOrStdout(), fmt.Sprintf("Restored %s from cache", path), c.noColor)
		})
	}

	g, err := graph.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	result, genErr := c.generator.Generate(g)
	if err := reportDiagnostics(c.cmd, result, c.registry, c.noColor, c.opts.jsonErrors); err != nil {
		return err
	}
	if genErr != nil {
		return fmt.Errorf("conversion of %s failed: %w", c.source, genErr)
	}

	if path := c.cfg.Pattern.Store; path != "" && len(result.Patterns) > 0 {
		if err := recordPatterns(c.cmd.Context(), path, g.Name, result.SessionID, result.Patterns); err != nil {
			return err
		}
	}

	src := codegen.EmitModule(result, c.cfg.Output.ClassName)
	if len(result.Errors) == 0 {
		c.store(key, src)
	}

	return c.write(src, func(path string) {
		out := c.cmd.OutOrStdout()
		ui.WriteSuccess(out, fmt.Sprintf("Converted %d of %d nodes to %s", len(result.Nodes), len(g.Nodes), path), c.noColor)
		ui.KeyValue(out, c.noColor,
			[2]string{"class", c.cfg.Output.ClassName},
			[2]string{"repeated patterns", fmt.Sprintf("%d", len(result.Patterns))},
			[2]string{"session", result.SessionID},
		)
	})
}

// write sends src to stdout or the configured output file; summary runs
// only after a file write
func (c *conversion) write(src string, summary func(path string)) error {
	if c.opts.stdout {
		_, err := io.WriteString(c.cmd.OutOrStdout(), src)
		return err
	}

	if err := c.cfg.EnsureOutputDir(); err != nil {
		return err
	}
	path := c.cfg.OutputPath()
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	c.logger.Info("wrote generated source", zap.String("path", path))
	summary(path)
	return nil
}

func (c *conversion) cacheKey(data []byte) string {
	p := c.cfg.Pattern
	return cache.Key(
		string(data),
		c.cfg.Output.ClassName,
		strings.ToLower(c.cfg.Convert.OnUnsupported),
		strconv.Itoa(p.MinLength),
		strconv.Itoa(p.MaxLength),
		strconv.Itoa(p.ReuseThreshold),
	)
}

// cached looks up key; backend failures are logged and treated as a miss
func (c *conversion) cached(key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	data, err := c.cache.Get(c.cmd.Context(), key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			c.logger.Warn("cache lookup failed", zap.Error(err))
		}
		return "", false
	}
	c.logger.Debug("cache hit", zap.String("key", key))
	return string(data), true
}

func (c *conversion) store(key, src string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(c.cmd.Context(), key, []byte(src), c.cfg.Cache.TTL); err != nil {
		c.logger.Warn("cache store failed", zap.Error(err))
	}
}

func reportDiagnostics(cmd *cobra.Command, result *codegen.Result, registry *mapper.Registry, noColor, asJSON bool) error {
	if result == nil || len(result.Errors) == 0 {
		return nil
	}
	if asJSON {
		data, err := result.Errors.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), data)
		return nil
	}
	ui.WriteDiagnostics(cmd.ErrOrStderr(), result.Errors, registry.SupportedOps(), noColor)
	return nil
}

// readSource reads the raw graph at path, or stdin when path is "-"
func readSource(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	return data, nil
}

// readGraph decodes the graph at path, or from stdin when path is "-"
func readGraph(stdin io.Reader, path string) (*graph.Graph, error) {
	data, err := readSource(stdin, path)
	if err != nil {
		return nil, err
	}
	return graph.Decode(bytes.NewReader(data))
}
