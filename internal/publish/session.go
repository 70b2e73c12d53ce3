// Package publish implements the manifest-driven, generational publication
// protocol on a remote store.
//
// A Session lists the remote namespace once and keeps an in-memory index of
// known names that every put, rename and delete updates. Overwriting a file
// F rotates the existing generations first: F.(i-1) moves to F.i down to the
// first free slot, F moves to F.0, and once every slot up to F.N is taken
// the oldest generation F.N is deleted. Rotation is not transactional; a
// failure part way leaves shifted generations without the new F.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Options configures a Session.
type Options struct {
	// ManifestName is the uncompressed manifest name; the remote file
	// carries the compressor extension.
	ManifestName string

	// ChecksumName is the side file holding the MD5 of the compressed
	// manifest.
	ChecksumName string

	// MaxVersions is N in F.0 .. F.N.
	MaxVersions int

	// WorkDir receives downloads and intermediates.
	WorkDir string

	// LockName is the advisory lock file; empty disables locking.
	LockName string
}

// Session is one run's view of the remote store.
type Session struct {
	store    types.RemoteStore
	comp     types.Compressor
	progress types.Progress
	opts     Options

	known  map[string]bool
	temps  []string
	locked bool
}

// Open lists the remote store and returns a session over it.
func Open(ctx context.Context, store types.RemoteStore, comp types.Compressor, progress types.Progress, opts Options) (*Session, error) {
	if opts.ManifestName == "" {
		opts.ManifestName = types.DefaultManifestName
	}
	if opts.ChecksumName == "" {
		opts.ChecksumName = types.DefaultChecksumName
	}
	if opts.MaxVersions < 0 {
		return nil, types.ErrMaxVersionsInvalid
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote: %w", err)
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	return &Session{
		store:    store,
		comp:     comp,
		progress: progress,
		opts:     opts,
		known:    known,
	}, nil
}

// Exists reports whether name is in the index.
func (s *Session) Exists(name string) bool {
	return s.known[name]
}

// Known returns the indexed names in sorted order.
func (s *Session) Known() []string {
	names := make([]string, 0, len(s.known))
	for n := range s.known {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ManifestFile is the remote name of the compressed manifest.
func (s *Session) ManifestFile() string {
	return s.opts.ManifestName + s.comp.Extension()
}

// Publish uploads the file at localPath as name, rotating an existing name
// first.
func (s *Session) Publish(ctx context.Context, name, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()
	return s.publish(ctx, name, f)
}

func (s *Session) publish(ctx context.Context, name string, r io.Reader) error {
	s.progress.Enter("publish " + name)
	defer s.progress.Exit()

	if s.Exists(name) {
		if err := s.rotate(ctx, name); err != nil {
			return fmt.Errorf("rotating %s: %w", name, err)
		}
	}
	if err := s.store.Put(ctx, name, r); err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	s.known[name] = true
	return nil
}

// generation returns the name of slot i of name.
func generation(name string, i int) string {
	return fmt.Sprintf("%s.%d", name, i)
}

// rotate moves name out of the way. The deepest rename happens first so
// no generation is overwritten.
func (s *Session) rotate(ctx context.Context, name string) error {
	free := -1
	for i := 0; i <= s.opts.MaxVersions; i++ {
		if !s.Exists(generation(name, i)) {
			free = i
			break
		}
	}
	if free < 0 {
		free = s.opts.MaxVersions
		oldest := generation(name, free)
		s.progress.Note("delete " + oldest)
		if err := s.store.Delete(ctx, oldest); err != nil {
			return fmt.Errorf("deleting %s: %w", oldest, err)
		}
		delete(s.known, oldest)
	}

	for i := free; i > 0; i-- {
		if err := s.rename(ctx, generation(name, i-1), generation(name, i)); err != nil {
			return err
		}
	}
	return s.rename(ctx, name, generation(name, 0))
}

func (s *Session) rename(ctx context.Context, from, to string) error {
	s.progress.Note("rename " + from + " -> " + to)
	if err := s.store.Rename(ctx, from, to); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", from, to, err)
	}
	delete(s.known, from)
	s.known[to] = true
	return nil
}

// track records a local temporary for Cleanup.
func (s *Session) track(path string) {
	s.temps = append(s.temps, path)
}

// Cleanup removes every local temporary the session created.
func (s *Session) Cleanup() {
	for _, p := range s.temps {
		os.Remove(p)
	}
	s.temps = nil
}
