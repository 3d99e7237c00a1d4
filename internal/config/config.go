package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yaml2json/internal/codec"
	"yaml2json/internal/render"
)

// Config holds all yaml2json configuration.
type Config struct {
	// Output formatting
	Output OutputConfig `yaml:"output"`

	// Input acquisition
	Input InputConfig `yaml:"input"`

	// Multi-file conversion
	Batch BatchConfig `yaml:"batch"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig configures JSON rendering and the output encoding.
type OutputConfig struct {
	Pretty       bool   `yaml:"pretty"`
	IndentWidth  int    `yaml:"indent_width"`
	IndentChar   string `yaml:"indent_char"`   // single character, "\t" accepted
	FinalNewline bool   `yaml:"final_newline"` // only applies to pretty output
	Compression  string `yaml:"compression"`   // none, gzip, zstd, lz4
}

// InputConfig configures how input files are loaded.
type InputConfig struct {
	DisableMmap bool `yaml:"disable_mmap"`
}

// BatchConfig configures `yaml2json batch`.
type BatchConfig struct {
	Workers   int    `yaml:"workers"`    // 0 = number of CPUs
	Extension string `yaml:"extension"`  // output file suffix
	KeepGoing bool   `yaml:"keep_going"` // convert remaining files after a failure
}

// WatchConfig configures `yaml2json watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Pretty:       false,
			IndentWidth:  2,
			IndentChar:   " ",
			FinalNewline: true,
			Compression:  string(codec.None),
		},
		Input: InputConfig{
			DisableMmap: false,
		},
		Batch: BatchConfig{
			Workers:   0,
			Extension: ".json",
			KeepGoing: false,
		},
		Watch: WatchConfig{
			Debounce: "100ms",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. An empty path or a missing file
// yields the defaults; environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies YAML2JSON_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("YAML2JSON_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid YAML2JSON_PRETTY %q: %w", v, err)
		}
		c.Output.Pretty = b
	}
	if v := os.Getenv("YAML2JSON_INDENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid YAML2JSON_INDENT %q: %w", v, err)
		}
		c.Output.IndentWidth = n
	}
	if v := os.Getenv("YAML2JSON_INDENT_CHAR"); v != "" {
		c.Output.IndentChar = v
	}
	if v := os.Getenv("YAML2JSON_COMPRESSION"); v != "" {
		c.Output.Compression = v
	}
	if v := os.Getenv("YAML2JSON_NO_MMAP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid YAML2JSON_NO_MMAP %q: %w", v, err)
		}
		c.Input.DisableMmap = b
	}
	if v := os.Getenv("YAML2JSON_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid YAML2JSON_WORKERS %q: %w", v, err)
		}
		c.Batch.Workers = n
	}
	if v := os.Getenv("YAML2JSON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output.IndentWidth < 0 {
		return fmt.Errorf("output.indent_width must be >= 0, got %d", c.Output.IndentWidth)
	}
	if _, err := ParseIndentChar(c.Output.IndentChar); err != nil {
		return err
	}
	if _, err := codec.ParseKind(c.Output.Compression); err != nil {
		return fmt.Errorf("output.compression: %w", err)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must be >= 0, got %d", c.Batch.Workers)
	}
	if c.Batch.Extension != "" && !strings.HasPrefix(c.Batch.Extension, ".") {
		return fmt.Errorf("batch.extension must start with '.', got %q", c.Batch.Extension)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	return c.Logging.Validate()
}

// ParseIndentChar accepts a single printable ASCII character or one of the
// escapes "\t" and "tab".
func ParseIndentChar(s string) (byte, error) {
	switch s {
	case `\t`, "tab", "\t":
		return '\t', nil
	case "", "space":
		return ' ', nil
	}
	if len(s) != 1 || s[0] < ' ' || s[0] > '~' {
		return 0, fmt.Errorf("output.indent_char must be a single ASCII character, got %q", s)
	}
	return s[0], nil
}

// RenderOptions converts the output settings for the render package.
// Call Validate first; an invalid indent character falls back to a space.
func (o OutputConfig) RenderOptions() render.Options {
	ch, err := ParseIndentChar(o.IndentChar)
	if err != nil {
		ch = ' '
	}
	return render.Options{
		PrettyPrint:  o.Pretty,
		IndentWidth:  o.IndentWidth,
		IndentChar:   ch,
		FinalNewline: o.FinalNewline,
	}
}

// CompressionKind returns the parsed output compression, None when invalid.
func (o OutputConfig) CompressionKind() codec.Kind {
	k, err := codec.ParseKind(o.Compression)
	if err != nil {
		return codec.None
	}
	return k
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}
