package serialize

import (
	"bytes"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/wizos/adblockcore/internal/parser"
)

// SaveFile atomically writes p's serialized form to path using renameio
// (write-to-temp-then-rename), so a reader never observes a partially
// written index file — the teacher depends on renameio for the same
// write-then-atomic-rename shape over its own config/state files. When
// gzipCompress is true the payload is gzip-compressed first.
func SaveFile(path string, p *parser.Parser, gzipCompress bool) error {
	data := Serialize(p)
	if gzipCompress {
		var err error
		if data, err = compressGzip(data); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, data, 0o644)
}

// LoadFile reads and deserializes an index file previously written by
// SaveFile. gzipCompressed must match the compression used when the file
// was saved.
func LoadFile(path string, cfg parser.Config, gzipCompressed bool) (*parser.Parser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if gzipCompressed {
		if data, err = decompressGzip(data); err != nil {
			return nil, err
		}
	}
	return Deserialize(data, cfg)
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
