package types

import (
	"context"
	"io"
	"time"
)

// SourceDatabase exposes the current contents of the source table.
type SourceDatabase interface {
	// Schema returns the table's columns in order.
	Schema(ctx context.Context) (Schema, error)

	// PrimaryKeys returns every primary key currently in the table,
	// regardless of any incremental filter.
	PrimaryKeys(ctx context.Context) (KeySet, error)

	// ChangedRows yields rows ascending by primary key. A zero since yields
	// every row; otherwise only rows modified after since.
	ChangedRows(ctx context.Context, since time.Time) (RowIter, error)

	// Close releases the connection.
	Close() error
}

// SnapshotStore reads and writes the embedded database file that holds a
// published snapshot.
type SnapshotStore interface {
	// ReadAll returns every row of the snapshot table at path.
	ReadAll(ctx context.Context, path string) ([]Row, error)

	// WriteTable drops and recreates the table at path with schema, then
	// inserts rows.
	WriteTable(ctx context.Context, path string, schema Schema, rows []Row) error
}

// Compressor is a byte-stream compression format.
type Compressor interface {
	// Name identifies the format in configuration ("gzip", "lzma").
	Name() string

	// Extension is appended to compressed file names (".gz").
	Extension() string

	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// RemoteStore is a flat file namespace on a remote server.
type RemoteStore interface {
	// List returns every file name in the namespace.
	List(ctx context.Context) ([]string, error)

	// Get opens a remote file. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Put creates or replaces a remote file.
	Put(ctx context.Context, name string, r io.Reader) error

	// Delete removes a remote file.
	Delete(ctx context.Context, name string) error

	// Rename moves a remote file. The new name must be free.
	Rename(ctx context.Context, oldName, newName string) error

	// Close ends the session.
	Close() error
}

// Progress reports nested steps of a run. It never affects control flow.
type Progress interface {
	// Enter prints label and nests subsequent output one level deeper.
	Enter(label string)

	// Exit returns to the enclosing level.
	Exit()

	// Note prints msg at the current level.
	Note(msg string)
}
