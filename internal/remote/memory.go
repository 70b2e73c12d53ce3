package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// MemoryStore is an in-memory RemoteStore. It records every mutating
// operation so tests can assert on the exact sequence.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	ops   []string
}

var _ types.RemoteStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, types.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	m.ops = append(m.ops, "put "+name)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, types.ErrNotFound)
	}
	delete(m.files, name)
	m.ops = append(m.ops, "delete "+name)
	return nil
}

func (m *MemoryStore) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(newName); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[oldName]
	if !ok {
		return fmt.Errorf("%s: %w", oldName, types.ErrNotFound)
	}
	if _, taken := m.files[newName]; taken {
		return fmt.Errorf("renaming %s: %s already exists", oldName, newName)
	}
	delete(m.files, oldName)
	m.files[newName] = data
	m.ops = append(m.ops, "rename "+oldName+" "+newName)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Contents returns a copy of a file's bytes.
func (m *MemoryStore) Contents(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return bytes.Clone(data), ok
}

// Ops returns the mutating operations performed so far.
func (m *MemoryStore) Ops() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.ops)
}

// ResetOps clears the operation log.
func (m *MemoryStore) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}
