package compress

import (
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// LZMA compresses with the classic .lzma format.
type LZMA struct{}

var _ types.Compressor = LZMA{}

func (LZMA) Name() string      { return types.CompressionLZMA }
func (LZMA) Extension() string { return ".lzma" }

func (LZMA) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lzma.NewWriter(w)
}

func (LZMA) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := lzma.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(zr), nil
}
