package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/arthurljones/sqlite-diff/internal/artifact"
	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// uncompressedExts are published as they are.
var uncompressedExts = []string{".md5", ".html"}

// PublishDir publishes every file in dir and records it in m, then
// publishes the updated manifest. Files already carrying the compressor
// extension are skipped; checksum and HTML files are uploaded as they are;
// everything else is compressed into the work dir first. Manifest files in
// dir are ignored.
func (s *Session) PublishDir(ctx context.Context, dir string, m types.Manifest) (types.Manifest, error) {
	s.progress.Enter("publish dir " + dir)
	defer s.progress.Exit()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || s.isManifestFile(name) {
			continue
		}
		if compress.HasExtension(s.comp, name) {
			s.progress.Note("skip " + name)
			continue
		}

		local := filepath.Join(dir, name)
		if !slices.Contains(uncompressedExts, filepath.Ext(name)) {
			packed := filepath.Join(s.opts.WorkDir, name+s.comp.Extension())
			s.track(packed)
			if err := compress.File(s.comp, local, packed); err != nil {
				return nil, fmt.Errorf("compressing %s: %w", name, err)
			}
			local = packed
		}

		sum, size, err := artifact.Checksum(local)
		if err != nil {
			return nil, err
		}
		remoteName := filepath.Base(local)
		if err := s.Publish(ctx, remoteName, local); err != nil {
			return nil, err
		}
		m = m.Upsert(types.ManifestEntry{File: remoteName, Checksum: sum, Size: size})
	}

	if err := s.PublishManifest(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Session) isManifestFile(name string) bool {
	return strings.HasPrefix(name, s.opts.ManifestName) || name == s.opts.ChecksumName
}
