//go:build !unix

package source

import (
	"errors"
	"os"
)

const mappingSupported = false

var errMappingUnsupported = errors.New("memory mapping is not supported on this platform")

func platformMap(*os.File, int) ([]byte, error) {
	return nil, errMappingUnsupported
}

func unmap([]byte) error {
	return nil
}
