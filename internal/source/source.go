// Package source loads input files into memory.
//
// Acquire maps the whole file with a private, writable mapping when the
// platform allows it and falls back to a single buffered read otherwise.
// Both strategies yield the same *Buffer; only the release work differs.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"yaml2json/internal/logging"
)

// Option adjusts a single Acquire call.
type Option func(*acquireOptions)

type acquireOptions struct {
	mapping bool
}

// WithoutMapping skips the mmap attempt and always reads into the heap.
func WithoutMapping() Option {
	return func(o *acquireOptions) {
		o.mapping = false
	}
}

// Hooks replaced in tests to force the fallback and read failure paths.
var (
	mapFile  = platformMap
	readFile = readAt
)

// Acquire loads the complete contents of path.
//
// The path must name an existing regular file (symlinks are followed) with a
// non-zero size. The returned Buffer must be closed by its owner.
func Acquire(path string, opts ...Option) (*Buffer, error) {
	o := acquireOptions{mapping: mappingSupported}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(NotFound, path, nil)
		}
		return nil, newError(OpenFailed, path, unwrapPathError(err))
	}
	if !info.Mode().IsRegular() {
		return nil, newError(NotRegularFile, path, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError(OpenFailed, path, unwrapPathError(err))
	}
	liveHandles.Add(1)
	buf := &Buffer{file: f, path: path}

	// From here on every failure must release the handle.
	fi, err := f.Stat()
	if err != nil {
		_ = buf.Close()
		return nil, newError(OpenFailed, path, fmt.Errorf("stat: %w", unwrapPathError(err)))
	}
	size := fi.Size()
	if size == 0 {
		_ = buf.Close()
		return nil, newError(EmptyFile, path, nil)
	}
	if size > math.MaxInt {
		_ = buf.Close()
		return nil, newError(ReadFailed, path, fmt.Errorf("file size %d exceeds addressable memory", size))
	}

	if o.mapping {
		data, err := mapFile(f, int(size))
		if err == nil {
			buf.data = data
			buf.mode = modeMapped
			liveMappings.Add(1)
			logging.SourceDebug("mapped %s (%d bytes)", path, size)
			return buf, nil
		}
		logging.Source("mmap %s failed, falling back to buffered read: %v", path, err)
	}

	data, err := readFile(f, size)
	if err != nil {
		_ = buf.Close()
		return nil, newError(ReadFailed, path, unwrapPathError(err))
	}
	buf.data = data
	buf.mode = modeOwned

	// The heap copy does not need the handle.
	if err := buf.closeFile(); err != nil {
		logging.SourceDebug("closing %s after read: %v", path, err)
	}
	logging.SourceDebug("read %s (%d bytes)", path, size)
	return buf, nil
}

// readAt fills a slice of exactly size bytes from offset zero. A file that
// shrank since fstat yields io.ErrUnexpectedEOF.
func readAt(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, size), data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

// unwrapPathError strips the *fs.PathError wrapper since Error already names the path.
func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
