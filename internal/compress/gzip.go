package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Gzip compresses with gzip. Published artifacts use it by default.
type Gzip struct {
	// Level is a gzip compression level; zero selects best compression.
	Level int
}

var _ types.Compressor = Gzip{}

func (Gzip) Name() string      { return types.CompressionGzip }
func (Gzip) Extension() string { return ".gz" }

func (g Gzip) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := g.Level
	if level == 0 {
		level = gzip.BestCompression
	}
	return gzip.NewWriterLevel(w, level)
}

func (Gzip) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
