// Package artifact builds, names and checksums the files a run publishes:
// compressed snapshot databases and compressed JSON changesets.
package artifact

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// StampLayout is the UTC timestamp embedded in artifact names.
const StampLayout = "20060102T150405"

var (
	stampRe    = regexp.MustCompile(`-(\d{8}T\d{6})$`)
	snapshotRe = regexp.MustCompile(`data-\d{8}T\d{6}\.db(\.[a-z]+)?$`)
)

// SnapshotName returns the uncompressed snapshot file name for t.
func SnapshotName(prefix string, t time.Time) string {
	return prefix + "data-" + t.UTC().Format(StampLayout) + ".db"
}

// ChangesetName returns the uncompressed changeset file name for t.
func ChangesetName(prefix string, t time.Time) string {
	return prefix + "diff-" + t.UTC().Format(StampLayout) + ".json"
}

// TimestampFromName extracts the timestamp embedded in an artifact name.
// Everything from the first dot of the base name on is ignored.
func TimestampFromName(name string) (time.Time, bool) {
	base := path.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	m := stampRe.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(StampLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsSnapshotName reports whether name is a snapshot artifact, compressed or not.
func IsSnapshotName(name string) bool {
	return snapshotRe.MatchString(path.Base(name))
}

// LatestSnapshot returns the manifest entry of the most recent snapshot.
// Ties on the timestamp are broken by the greater name.
func LatestSnapshot(m types.Manifest) (types.ManifestEntry, bool) {
	var (
		best   types.ManifestEntry
		bestAt time.Time
		found  bool
	)
	for _, e := range m {
		if !IsSnapshotName(e.File) {
			continue
		}
		at, ok := TimestampFromName(e.File)
		if !ok {
			continue
		}
		if !found || at.After(bestAt) || (at.Equal(bestAt) && e.File > best.File) {
			best, bestAt, found = e, at, true
		}
	}
	return best, found
}
