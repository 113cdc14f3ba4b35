package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/opconvert/internal/cli/config"
	"github.com/conduit-lang/opconvert/internal/cli/logging"
	"github.com/conduit-lang/opconvert/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	noColor    bool
	verbose    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "opconvert",
		Short: "Convert ONNX operator graphs to MindSpore source",
		Long: color.CyanString(`opconvert - ONNX to MindSpore operator converter

opconvert maps every node of an exported ONNX operator graph to an
equivalent MindSpore operator and emits an nn.Cell class. Repeated
operator sequences are reported so they can be folded into sub-modules.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./opconvert.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newConvertCommand(opts))
	rootCmd.AddCommand(newPatternsCommand(opts))
	rootCmd.AddCommand(newOpsCommand(opts))

	return rootCmd
}

// load reads the configuration and builds the logger for a command run
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		cmd.PrintErr(ui.ConfigError(err.Error(), o.noColor))
		return nil, nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, logging.NewOrNop(cfg.Log), nil
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the opconvert version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			noColor, _ := cmd.Flags().GetBool("no-color")
			ui.KeyValue(cmd.OutOrStdout(), noColor || color.NoColor,
				[2]string{"opconvert version", Version},
				[2]string{"Git commit", GitCommit},
				[2]string{"Build date", BuildDate},
				[2]string{"Go version", goVer},
			)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
