package types

// ManifestEntry describes one published artifact.
type ManifestEntry struct {
	File     string `json:"file"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Manifest is the ordered index of published artifacts. File names are
// unique within a manifest.
type Manifest []ManifestEntry

// Find returns the entry for name.
func (m Manifest) Find(name string) (ManifestEntry, bool) {
	for _, e := range m {
		if e.File == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Upsert replaces the entry with the same file name or appends e.
func (m Manifest) Upsert(e ManifestEntry) Manifest {
	for i := range m {
		if m[i].File == e.File {
			m[i] = e
			return m
		}
	}
	return append(m, e)
}

// Names returns the file names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, len(m))
	for i, e := range m {
		names[i] = e.File
	}
	return names
}

// Artifact is a local file produced by a run, ready to be published.
type Artifact struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Entry returns the manifest entry describing the artifact.
func (a Artifact) Entry() ManifestEntry {
	return ManifestEntry{File: a.Name, Checksum: a.Checksum, Size: a.Size}
}
