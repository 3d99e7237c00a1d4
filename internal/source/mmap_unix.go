//go:build unix

package source

import (
	"os"

	"golang.org/x/sys/unix"
)

const mappingSupported = true

// platformMap creates a private read/write mapping: writes stay in this
// process and never reach the file. f must stay open until unmap.
func platformMap(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
