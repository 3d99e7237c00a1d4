// Package batch converts many YAML files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"yaml2json/internal/logging"
	"yaml2json/internal/pipeline"
)

// Options configures Run.
type Options struct {
	OutDir    string // empty writes each output next to its input
	Workers   int    // 0 = runtime.NumCPU()
	Extension string // default ".json"
	KeepGoing bool   // convert every file and join the errors instead of stopping at the first
}

// Result reports the outcome for one input, in input order.
type Result struct {
	Input  string
	Output string
	Bytes  int
	Err    error
}

// OutputPath derives the output file for input: the input's base name with its
// YAML (and compression) extension replaced by ext, placed in outDir or next
// to the input.
func OutputPath(input, outDir, ext string) string {
	if ext == "" {
		ext = ".json"
	}
	base := filepath.Base(input)
	for _, suffix := range []string{".gz", ".zst", ".lz4"} {
		base = strings.TrimSuffix(base, suffix)
	}
	for _, suffix := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			base = base[:len(base)-len(suffix)]
			break
		}
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+ext)
}

// Run converts inputs with conv and writes one output file per input.
//
// Without KeepGoing the first failure cancels the files that have not started
// yet and is returned; their results carry the cancellation error. With
// KeepGoing all failures are joined.
func Run(ctx context.Context, conv *pipeline.Converter, inputs []string, opts Options) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no input files")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ext := opts.Extension
	if ext == "" {
		ext = ".json"
	}
	ext += conv.Options().Compression.Extension()

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	results := make([]Result, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := OutputPath(in, opts.OutDir, ext)
		if prev, dup := seen[out]; dup {
			return nil, fmt.Errorf("inputs '%s' and '%s' both map to output '%s'", prev, in, out)
		}
		seen[out] = in
		results[i] = Result{Input: in, Output: out}
	}

	logging.Batch("converting %d files with %d workers", len(inputs), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				r.Err = err
				return nil
			}
			data, err := conv.ConvertFile(r.Input)
			if err == nil {
				err = pipeline.WriteOutput(r.Output, data, nil)
			}
			if err != nil {
				r.Err = err
				logging.BatchWarn("%s: %v", r.Input, err)
				if opts.KeepGoing {
					return nil
				}
				return err
			}
			r.Bytes = len(data)
			logging.Batch("%s -> %s (%d bytes)", r.Input, r.Output, r.Bytes)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

// Summary counts successes and failures.
func Summary(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}
