package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Format string

const (
	FormatPlain Format = "plain"
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
)

const sniffSize = 512

var (
	ErrUnsupported = errors.New("unsupported compression format")

	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

	// Recognized archive formats this reader does not decode.
	archiveMagic = map[string][]byte{
		"xz":  {0xfd, '7', 'z', 'X', 'Z', 0x00},
		"zip": {'P', 'K', 0x03, 0x04},
		"7z":  {'7', 'z', 0xbc, 0xaf, 0x27, 0x1c},
	}
)

// NewReader detects the stream format from its first bytes and returns a
// decompressed view of it. Anything that is not gzip, zstd or a known archive
// format passes through unchanged as plain text. Closing the
// returned reader does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Format, error) {
	br := bufio.NewReaderSize(r, 64<<10)

	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("failed to read stream header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, FormatGzip, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, FormatGzip, nil

	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, FormatZstd, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), FormatZstd, nil
	}

	if name := archiveFormat(head); name != "" {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}

	return io.NopCloser(br), FormatPlain, nil
}

func archiveFormat(head []byte) string {
	// "BZh" followed by the block size digit
	if len(head) >= 4 && bytes.HasPrefix(head, []byte("BZh")) && head[3] >= '1' && head[3] <= '9' {
		return "bzip2"
	}
	for name, magic := range archiveMagic {
		if bytes.HasPrefix(head, magic) {
			return name
		}
	}
	return ""
}
