// Package watch re-converts a YAML file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"yaml2json/internal/logging"
	"yaml2json/internal/pipeline"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Input    string
	Output   string // empty or "-" writes to Stdout
	Debounce time.Duration
	Stdout   io.Writer
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Conversions   int
	Errors        int
	LastEventTime time.Time
	LastError     error
}

// Watcher watches the directory holding the input so that editors which
// save by rename-and-replace keep triggering conversions.
type Watcher struct {
	mu      sync.Mutex
	conv    *pipeline.Converter
	opts    Options
	input   string
	dir     string
	stats   Stats
	running bool
}

// New validates opts and prepares a Watcher. No filesystem watch is
// registered until Run.
func New(conv *pipeline.Converter, opts Options) (*Watcher, error) {
	if opts.Input == "" || opts.Input == "-" {
		return nil, fmt.Errorf("watch requires an input file")
	}
	input, err := filepath.Abs(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Output != "" && opts.Output != "-" {
		out, err := filepath.Abs(opts.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output path: %w", err)
		}
		if out == input {
			return nil, fmt.Errorf("output '%s' would overwrite the watched input", opts.Output)
		}
	}

	return &Watcher{
		conv:  conv,
		opts:  opts,
		input: input,
		dir:   filepath.Dir(input),
	}, nil
}

// Run converts the input once and then again after every settled change,
// until ctx is cancelled. Conversion errors are logged and counted, never
// returned.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory '%s': %w", w.dir, err)
	}
	logging.Watch("watching %s (debounce %s)", w.input, w.opts.Debounce)

	w.convert()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("stopped watching %s", w.input)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				fire = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WatchWarn("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.stats.LastError = err
			w.mu.Unlock()

		case <-fire:
			w.convert()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.input {
		return false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			logging.WatchWarn("%s was removed; waiting for it to reappear", w.input)
		}
		return false
	}

	logging.WatchDebug("%s event for %s", event.Op, event.Name)
	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.mu.Unlock()
	return true
}

func (w *Watcher) convert() {
	data, err := w.conv.ConvertFile(w.input)
	if err == nil {
		err = pipeline.WriteOutput(w.opts.Output, data, w.opts.Stdout)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.Errors++
		w.stats.LastError = err
		logging.WatchWarn("%v", err)
		return
	}
	w.stats.Conversions++
	logging.Watch("converted %s (%d bytes)", w.input, len(data))
}

// Stats returns a snapshot of the watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
