package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"yaml2json/internal/batch"
)

var (
	batchOutDir    string
	batchWorkers   int
	batchExt       string
	batchKeepGoing bool
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Convert many YAML files concurrently",
		Long: `Converts every named file, and every .yaml/.yml file under each named
directory, writing one JSON file per input.

Outputs go next to their inputs unless --out-dir is given. The first failure
stops the batch unless --keep-going is set.

Example:
  yaml2json batch conf/ extra.yaml --out-dir build -j 8 --pretty`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Directory for output files (default: next to each input)")
	cmd.Flags().IntVarP(&batchWorkers, "jobs", "j", 0, "Concurrent conversions (default: config, then number of CPUs)")
	cmd.Flags().StringVar(&batchExt, "ext", "", `Output file extension (default ".json")`)
	cmd.Flags().BoolVar(&batchKeepGoing, "keep-going", false, "Convert remaining files after a failure")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}

	opts := batch.Options{
		OutDir:    batchOutDir,
		Workers:   cfg.Batch.Workers,
		Extension: cfg.Batch.Extension,
		KeepGoing: cfg.Batch.KeepGoing,
	}
	if cmd.Flags().Changed("jobs") {
		opts.Workers = batchWorkers
	}
	if cmd.Flags().Changed("ext") {
		opts.Extension = batchExt
	}
	if cmd.Flags().Changed("keep-going") {
		opts.KeepGoing = batchKeepGoing
	}

	results, runErr := batch.Run(cmd.Context(), newConverter(), inputs, opts)
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.Input, r.Output)
		}
	}
	if runErr != nil {
		ok, failed := batch.Summary(results)
		if len(results) > 0 {
			return fmt.Errorf("%d converted, %d failed: %w", ok, failed, runErr)
		}
		return runErr
	}
	return nil
}

// expandInputs replaces each directory argument with the YAML files beneath
// it, sorted by path.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported per input by the batch.
			inputs = append(inputs, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml":
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory '%s': %w", arg, err)
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no YAML files found in %s", strings.Join(args, ", "))
	}
	return inputs, nil
}
