package main

import (
	"fmt"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"yaml2json/internal/codec"
	"yaml2json/internal/config"
	"yaml2json/internal/logging"
	"yaml2json/internal/pipeline"
)

// buildDate is set with -ldflags "-X main.buildDate=...".
var buildDate = "unknown"

var (
	// Global flags
	configPath     string
	verbose        bool
	pretty         bool
	indentWidth    int
	indentChar     string
	noFinalNewline bool
	noMmap         bool
	compress       string

	// Root command flags
	inputFile  string
	outputFile string

	// Resolved by PersistentPreRunE
	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yaml2json [input] [output]",
		Short: "High-performance YAML to JSON converter",
		Long: `High-performance YAML to JSON converter

Reads YAML from a file (memory-mapped when possible) or standard input and
writes JSON to a file or standard output. Explicit --input/--output flags take
priority; positional arguments fill whichever of the two is not set.

Examples:
  yaml2json config.yaml
  yaml2json config.yaml config.json --pretty
  cat config.yaml | yaml2json -p -o config.json
  yaml2json batch conf/*.yaml --out-dir build -j 4
  yaml2json watch -i config.yaml -o config.json`,
		Args:          cobra.MaximumNArgs(2),
		Version:       buildDate,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := logging.Initialize(loaded.Logging.Options(verbose)); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			cfg = loaded
			logging.Boot("yaml2json built on %s, run %s", buildDate, logging.RunID())
			logging.BootDebug("config resolved: %+v", cfg.Output)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: runConvert,
	}
	rootCmd.SetVersionTemplate("yaml2json built on {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (YAML)")
	pf.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	pf.BoolVarP(&pretty, "pretty", "p", false, "Pretty-print JSON output with indentation")
	pf.IntVar(&indentWidth, "indent", 2, "Indentation width for --pretty")
	pf.StringVar(&indentChar, "indent-char", " ", `Indentation character for --pretty ("tab" or "\t" for tabs)`)
	pf.BoolVar(&noFinalNewline, "no-final-newline", false, "Omit the trailing newline of pretty output")
	pf.BoolVar(&noMmap, "no-mmap", false, "Read input files into memory instead of mapping them")
	pf.StringVar(&compress, "compress", "", "Compress output (none, gzip, zstd, lz4)")

	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input YAML file (default: standard input)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output JSON file (default: standard output)")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newWatchCmd())
	return rootCmd
}

// resolveConfig layers the config file, environment and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("pretty") {
		c.Output.Pretty = pretty
	}
	if flags.Changed("indent") {
		c.Output.IndentWidth = indentWidth
	}
	if flags.Changed("indent-char") {
		c.Output.IndentChar = indentChar
	}
	if flags.Changed("no-final-newline") {
		c.Output.FinalNewline = !noFinalNewline
	}
	if flags.Changed("no-mmap") {
		c.Input.DisableMmap = noMmap
	}
	if flags.Changed("compress") {
		c.Output.Compression = compress
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func newConverter() *pipeline.Converter {
	opts := pipeline.OptionsFromConfig(cfg)
	if opts.Compression != codec.None {
		logging.BootDebug("output compression: %s", opts.Compression)
	}
	return pipeline.New(opts)
}

// capitalize upper-cases the first letter of an error message for display.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", capitalize(err.Error()))
		os.Exit(1)
	}
}
