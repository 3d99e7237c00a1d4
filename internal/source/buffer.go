package source

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

type mode uint8

const (
	modeInvalid mode = iota
	modeMapped       // backed by a private file mapping, file handle retained
	modeOwned        // backed by a heap slice filled by a read
)

func (m mode) String() string {
	switch m {
	case modeMapped:
		return "mapped"
	case modeOwned:
		return "owned"
	default:
		return "invalid"
	}
}

// noCopy makes `go vet` flag Buffer values that are copied instead of moved.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is the contents of one input file. Whether the bytes live in a
// memory mapping or on the heap is not visible to callers.
//
// A Buffer has exactly one owner. Ownership is handed off with Move, which
// leaves the old value empty; Close releases the mapping and file handle and
// is safe to call more than once. Slices returned by Bytes must not be used
// after Close.
type Buffer struct {
	_    noCopy
	data []byte
	mode mode
	file *os.File
	path string
}

// Resources counts OS resources held by live buffers.
type Resources struct {
	Handles  int64
	Mappings int64
}

var (
	liveHandles  atomic.Int64
	liveMappings atomic.Int64
)

// LiveResources reports how many file handles and mappings are currently held
// by buffers that have not been closed.
func LiveResources() Resources {
	return Resources{Handles: liveHandles.Load(), Mappings: liveMappings.Load()}
}

// FromBytes wraps caller-provided bytes (stdin, decompressed data) so they can
// flow through the same code as acquired files. The slice is not copied.
func FromBytes(b []byte) *Buffer {
	if len(b) == 0 {
		return &Buffer{}
	}
	return &Buffer{data: b, mode: modeOwned}
}

// Bytes returns the file contents. The mapped variant is writable copy-on-write
// memory, so in-place mutation never reaches the file.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Valid reports whether the buffer holds at least one byte.
func (b *Buffer) Valid() bool {
	return b != nil && len(b.data) > 0
}

// Path returns the file the buffer was acquired from, empty for FromBytes.
func (b *Buffer) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

// Move transfers ownership to a new Buffer. b is left empty and its Close
// becomes a no-op. Moving a nil Buffer yields an empty one.
func (b *Buffer) Move() *Buffer {
	if b == nil {
		return &Buffer{}
	}
	moved := &Buffer{data: b.data, mode: b.mode, file: b.file, path: b.path}
	b.data = nil
	b.mode = modeInvalid
	b.file = nil
	return moved
}

// Close unmaps the data (if mapped) and then closes the file handle (if open).
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.mode == modeMapped && b.data != nil {
		if err := unmap(b.data); err != nil {
			errs = append(errs, fmt.Errorf("munmap %s: %w", b.path, err))
		}
		liveMappings.Add(-1)
	}
	b.data = nil
	b.mode = modeInvalid
	if err := b.closeFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Buffer) closeFile() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	liveHandles.Add(-1)
	if err != nil {
		return fmt.Errorf("close %s: %w", b.path, err)
	}
	return nil
}
