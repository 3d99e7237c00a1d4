package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yaml2json/internal/logging"
	"yaml2json/internal/watch"
)

var (
	watchInput    string
	watchOutput   string
	watchDebounce time.Duration
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [input] [output]",
		Short: "Re-convert a YAML file whenever it changes",
		Long: `Converts the input once, then again each time it is written, until
interrupted. Conversion errors are reported and watching continues.

Example:
  yaml2json watch -i config.yaml -o config.json --pretty`,
		Args: cobra.MaximumNArgs(2),
		RunE: runWatch,
	}
	cmd.Flags().StringVarP(&watchInput, "input", "i", "", "Input YAML file to watch")
	cmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output JSON file (default: standard output)")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-converting (default: config, 100ms)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	in, out := resolvePaths(args, watchInput, watchOutput)

	debounce := cfg.GetDebounce()
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}

	w, err := watch.New(newConverter(), watch.Options{
		Input:    in,
		Output:   out,
		Debounce: debounce,
		Stdout:   cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		return err
	}
	stats := w.Stats()
	logging.Watch("watch finished: %d conversions, %d errors", stats.Conversions, stats.Errors)
	return nil
}
