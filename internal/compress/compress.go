// Package compress provides the compression formats for published artifacts
// and helpers to apply them to files and byte slices.
package compress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// New returns the compressor registered under name.
func New(name string) (types.Compressor, error) {
	switch name {
	case types.CompressionGzip, "":
		return Gzip{}, nil
	case types.CompressionLZMA:
		return LZMA{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrCompressionUnknown, name)
	}
}

// HasExtension reports whether name carries the compressor's extension.
func HasExtension(c types.Compressor, name string) bool {
	return strings.HasSuffix(name, c.Extension())
}

// TrimExtension removes the compressor's extension from name.
func TrimExtension(c types.Compressor, name string) string {
	return strings.TrimSuffix(name, c.Extension())
}

// Bytes compresses data in memory.
func Bytes(c types.Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating %s writer: %w", c.Name(), err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing %s stream: %w", c.Name(), err)
	}
	return buf.Bytes(), nil
}

// UnBytes decompresses data in memory.
func UnBytes(c types.Compressor, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s reader: %w", c.Name(), err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

// File compresses src into dst. dst is written to a temp file in its
// directory and renamed into place, so a failure never leaves a partial dst.
func File(c types.Compressor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	return writeAtomic(dst, func(out io.Writer) error {
		w, err := c.NewWriter(out)
		if err != nil {
			return fmt.Errorf("creating %s writer: %w", c.Name(), err)
		}
		if _, err := io.Copy(w, in); err != nil {
			w.Close()
			return fmt.Errorf("compressing %s: %w", src, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finishing %s stream: %w", c.Name(), err)
		}
		return nil
	})
}

// UnFile decompresses src into dst.
func UnFile(c types.Compressor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	r, err := c.NewReader(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("reading %s header: %w", src, err)
	}
	defer r.Close()

	return writeAtomic(dst, func(out io.Writer) error {
		if _, err := io.Copy(out, r); err != nil {
			return fmt.Errorf("decompressing %s: %w", src, err)
		}
		return nil
	})
}

// writeAtomic writes path using the temp-file, fsync, rename pattern.
func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
