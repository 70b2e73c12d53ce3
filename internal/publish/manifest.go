package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arthurljones/sqlite-diff/internal/artifact"
	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/internal/logger"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// FetchManifest downloads and decodes the manifest. A manifest that does not
// exist yet is empty, not an error. A manifest that disagrees with its
// checksum side file is used with a warning, since a run interrupted between
// the two uploads leaves them out of step.
func (s *Session) FetchManifest(ctx context.Context) (types.Manifest, error) {
	name := s.ManifestFile()
	if !s.Exists(name) {
		return types.Manifest{}, nil
	}

	packed, err := s.download(ctx, name)
	if errors.Is(err, types.ErrNotFound) {
		return types.Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}

	if s.Exists(s.opts.ChecksumName) {
		if want, err := s.download(ctx, s.opts.ChecksumName); err == nil {
			if got := artifact.ChecksumBytes(packed); strings.TrimSpace(string(want)) != got {
				logger.Warn("manifest checksum %s does not match %s", got, s.opts.ChecksumName)
			}
		}
	}

	data, err := compress.UnBytes(s.comp, packed)
	if err != nil {
		return nil, fmt.Errorf("decompressing manifest: %w", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m == nil {
		m = types.Manifest{}
	}
	return m, nil
}

// PublishManifest encodes, compresses and publishes m, then publishes the
// MD5 of the compressed bytes to the checksum side file.
func (s *Session) PublishManifest(ctx context.Context, m types.Manifest) error {
	if m == nil {
		m = types.Manifest{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	packed, err := compress.Bytes(s.comp, data)
	if err != nil {
		return fmt.Errorf("compressing manifest: %w", err)
	}

	if err := s.publish(ctx, s.ManifestFile(), bytes.NewReader(packed)); err != nil {
		return err
	}
	sum := artifact.ChecksumBytes(packed)
	if err := s.publish(ctx, s.opts.ChecksumName, strings.NewReader(sum)); err != nil {
		return err
	}
	logger.Info("published manifest with %d entries (md5 %s)", len(m), sum)
	return nil
}

func (s *Session) download(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}
	return data, nil
}
