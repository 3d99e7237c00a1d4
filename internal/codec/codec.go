// Package codec handles compressed YAML input and optional compression of
// the JSON output.
//
// Input compression is detected from magic bytes, so callers never have to
// say how a file was packed. YAML text cannot start with any of the
// recognized signatures (they begin with control bytes YAML forbids).
package codec

import (
	"bytes"
	"fmt"
	"strings"

	"yaml2json/internal/logging"
)

// Kind names a compression format.
type Kind string

const (
	None Kind = "none"
	Gzip Kind = "gzip"
	Zstd Kind = "zstd"
	LZ4  Kind = "lz4"
)

// Kinds lists every supported format.
var Kinds = []Kind{None, Gzip, Zstd, LZ4}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compressor compresses a complete payload. The returned slice is owned by
// the caller and the input is not modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor for the same format.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// ParseKind maps a user-supplied name to a Kind. The empty string means None.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case "", None:
		return None, nil
	case Gzip, Zstd, LZ4:
		return k, nil
	case "gz":
		return Gzip, nil
	case "zst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q (valid: none, gzip, zstd, lz4)", name)
	}
}

// New returns the Codec for kind.
func New(kind Kind) (Codec, error) {
	switch kind {
	case None, "":
		return noop{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("invalid compression: %s", kind)
	}
}

// Detect identifies the compression format from the leading bytes.
func Detect(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	default:
		return None
	}
}

// Decode decompresses data if it carries a known signature. For plain input
// it returns data itself, not a copy.
func Decode(data []byte) ([]byte, Kind, error) {
	kind := Detect(data)
	if kind == None {
		return data, None, nil
	}
	c, err := New(kind)
	if err != nil {
		return nil, kind, err
	}
	out, err := c.Decompress(data)
	if err != nil {
		return nil, kind, fmt.Errorf("%s input: %w", kind, err)
	}
	logging.CodecDebug("decoded %s input: %d -> %d bytes", kind, len(data), len(out))
	return out, kind, nil
}

// Encode compresses data with kind. None returns data unchanged.
func Encode(kind Kind, data []byte) ([]byte, error) {
	c, err := New(kind)
	if err != nil {
		return nil, err
	}
	out, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%s output: %w", kind, err)
	}
	if kind != None {
		logging.CodecDebug("encoded %s output: %d -> %d bytes", kind, len(data), len(out))
	}
	return out, nil
}

// Extension returns the conventional file suffix for kind, empty for None.
func (k Kind) Extension() string {
	switch k {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

type noop struct{}

func (noop) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noop) Decompress(data []byte) ([]byte, error) { return data, nil }
