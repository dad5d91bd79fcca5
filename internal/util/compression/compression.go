// Package compression provides the codecs used for stored post content.
package compression

import (
	"errors"
	"fmt"
)

// MaxDecompressedSize bounds the content a stored blob may expand to.
const MaxDecompressedSize = 64 << 20

var ErrTooLarge = errors.New("decompressed content exceeds the size limit")

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// New returns the compressor registered under name ("zstd", "gzip" or "none").
func New(name string) (Compressor, error) {
	switch name {
	case "zstd":
		return ZstdCompressor{}, nil
	case "gzip":
		return GzipCompressor{}, nil
	case "none", "":
		return NoopCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

type NoopCompressor struct{}

func (NoopCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (NoopCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
