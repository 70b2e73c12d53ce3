package publish

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is the manifest checksum
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// FetchSnapshot downloads the snapshot described by entry into the work
// dir, verifies it against the entry's checksum and size, and decompresses
// it when its name carries the compressor extension. It returns the local
// path of the database file. Downloaded files are removed by Cleanup.
func (s *Session) FetchSnapshot(ctx context.Context, entry types.ManifestEntry) (string, error) {
	s.progress.Enter("fetch " + entry.File)
	defer s.progress.Exit()

	local := filepath.Join(s.opts.WorkDir, filepath.Base(entry.File))
	s.track(local)
	if err := s.fetchVerified(ctx, entry, local); err != nil {
		return "", err
	}

	if !compress.HasExtension(s.comp, local) {
		return local, nil
	}
	plain := compress.TrimExtension(s.comp, local)
	s.track(plain)
	s.progress.Note("decompress")
	if err := compress.UnFile(s.comp, local, plain); err != nil {
		return "", fmt.Errorf("decompressing %s: %w", entry.File, err)
	}
	os.Remove(local)
	return plain, nil
}

func (s *Session) fetchVerified(ctx context.Context, entry types.ManifestEntry, local string) error {
	rc, err := s.store.Get(ctx, entry.File)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", entry.File, err)
	}
	defer rc.Close()

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("creating %s: %w", local, err)
	}
	h := md5.New() //nolint:gosec
	n, err := io.Copy(io.MultiWriter(f, h), rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("downloading %s: %w", entry.File, err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if entry.Checksum != "" && sum != entry.Checksum {
		return fmt.Errorf("%s: md5 %s, manifest says %s: %w", entry.File, sum, entry.Checksum, types.ErrChecksumMismatch)
	}
	if entry.Size > 0 && n != entry.Size {
		return fmt.Errorf("%s: %d bytes, manifest says %d: %w", entry.File, n, entry.Size, types.ErrChecksumMismatch)
	}
	s.progress.Note(fmt.Sprintf("%d bytes, md5 %s", n, sum))
	return nil
}
