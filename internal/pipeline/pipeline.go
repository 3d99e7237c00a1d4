// Package pipeline runs one YAML document through acquisition, conversion,
// rendering and optional output compression.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"yaml2json/internal/codec"
	"yaml2json/internal/config"
	"yaml2json/internal/convert"
	"yaml2json/internal/logging"
	"yaml2json/internal/render"
	"yaml2json/internal/source"
)

// ErrNoInput is returned for empty standard input.
var ErrNoInput = errors.New("no input provided")

// Options configures a Converter.
type Options struct {
	Render      render.Options
	Compression codec.Kind
	DisableMmap bool
}

// OptionsFromConfig builds Options from a validated config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Render:      cfg.Output.RenderOptions(),
		Compression: cfg.Output.CompressionKind(),
		DisableMmap: cfg.Input.DisableMmap,
	}
}

// Converter is safe for concurrent use; it holds no per-call state.
type Converter struct {
	opts Options
}

// New creates a Converter.
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Options returns the options the converter was built with.
func (c *Converter) Options() Options {
	return c.opts
}

// ConvertFile converts the YAML file at path. The file is labelled with its
// path in parse diagnostics.
func (c *Converter) ConvertFile(path string) ([]byte, error) {
	var opts []source.Option
	if c.opts.DisableMmap {
		opts = append(opts, source.WithoutMapping())
	}

	buf, err := source.Acquire(path, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := buf.Close(); err != nil {
			logging.PipelineDebug("releasing %s: %v", path, err)
		}
	}()

	return c.run(buf, path)
}

// ConvertBytes converts YAML supplied by the caller, e.g. from standard input.
// label may be empty.
func (c *Converter) ConvertBytes(data []byte, label string) ([]byte, error) {
	buf := source.FromBytes(data)
	defer buf.Close()
	if !buf.Valid() {
		return nil, ErrNoInput
	}
	return c.run(buf, label)
}

// ConvertReader reads r to the end and converts the result.
func (c *Converter) ConvertReader(r io.Reader, label string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return c.ConvertBytes(data, label)
}

// run never returns a slice that aliases buf, so buf can be released as soon
// as it returns.
func (c *Converter) run(buf *source.Buffer, label string) ([]byte, error) {
	start := time.Now()

	yamlData, kind, err := codec.Decode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decode input '%s': %w", label, err)
	}

	json, err := convert.Convert(yamlData, label)
	if err != nil {
		return nil, err
	}

	out := render.Render(json, c.opts.Render)
	if c.opts.Render.PrettyPrint {
		logging.RenderDebug("rendered %d -> %d bytes", len(json), len(out))
	}

	out, err = codec.Encode(c.opts.Compression, out)
	if err != nil {
		return nil, err
	}

	logging.Pipeline("converted %q (input %s, %d bytes) in %s", label, kind, buf.Len(), time.Since(start))
	return out, nil
}

// WriteOutput writes data to path, or to stdout when path is empty or "-".
func WriteOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write to standard output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file '%s': %w", path, unwrapPathError(err))
	}
	return nil
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
