package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// WriteChangeset encodes cs as JSON and writes it compressed to path plus
// the compressor extension.
func WriteChangeset(comp types.Compressor, path string, cs *types.Changeset) (types.Artifact, error) {
	data, err := json.Marshal(cs)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("encoding changeset: %w", err)
	}
	packed, err := compress.Bytes(comp, data)
	if err != nil {
		return types.Artifact{}, err
	}
	out := path + comp.Extension()
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		os.Remove(out)
		return types.Artifact{}, fmt.Errorf("writing changeset: %w", err)
	}
	return describe(out)
}

// ReadChangeset reads a changeset file, decompressing it when the name
// carries the compressor extension. schema and pk give the key column's
// type, so text keys that look numeric stay text.
func ReadChangeset(comp types.Compressor, path string, schema types.Schema, pk string) (*types.Changeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading changeset: %w", err)
	}
	if compress.HasExtension(comp, path) {
		if data, err = compress.UnBytes(comp, data); err != nil {
			return nil, err
		}
	}
	cs := types.Changeset{TextKeys: schema.Affinity(pk) == types.AffinityText}
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("decoding changeset: %w", err)
	}
	return &cs, nil
}
