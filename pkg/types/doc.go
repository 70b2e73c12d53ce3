// Package types defines the rows, keys, schemas, changesets and manifests
// exchanged by the sqlite-diff pipeline, the interfaces of its external
// collaborators (source database, snapshot store, compressor, remote store,
// progress reporting) and the standard errors shared across packages.
//
// The package depends only on the standard library. Every other package
// depends on types, never the reverse.
package types
