package remote

import (
	"context"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

func stores(t *testing.T) map[string]types.RemoteStore {
	t.Helper()
	dir, err := NewDirStore(filepath.Join(t.TempDir(), "remote"))
	require.NoError(t, err)
	return map[string]types.RemoteStore{
		"memory":    NewMemoryStore(),
		"dir":       dir,
		"throttled": NewThrottled(NewMemoryStore(), 1000),
	}
}

func read(t *testing.T, s types.RemoteStore, name string) string {
	t.Helper()
	rc, err := s.Get(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			names, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, s.Put(ctx, "a", strings.NewReader("one")))
			require.NoError(t, s.Put(ctx, "b", strings.NewReader("two")))
			assert.Equal(t, "one", read(t, s, "a"))

			require.NoError(t, s.Put(ctx, "a", strings.NewReader("uno")))
			assert.Equal(t, "uno", read(t, s, "a"))

			names, err = s.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, names)

			require.NoError(t, s.Rename(ctx, "a", "a.0"))
			assert.Equal(t, "uno", read(t, s, "a.0"))
			_, err = s.Get(ctx, "a")
			assert.ErrorIs(t, err, types.ErrNotFound)

			assert.Error(t, s.Rename(ctx, "b", "a.0"), "rename onto existing name")
			assert.ErrorIs(t, s.Rename(ctx, "missing", "c"), types.ErrNotFound)

			require.NoError(t, s.Delete(ctx, "b"))
			assert.ErrorIs(t, s.Delete(ctx, "b"), types.ErrNotFound)

			names, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a.0"}, names)

			assert.Error(t, s.Put(ctx, "../escape", strings.NewReader("x")))
			assert.NoError(t, s.Close())
		})
	}
}

func TestStoreHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.List(ctx)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, s.Put(ctx, "a", strings.NewReader("x")), context.Canceled)
		})
	}
}

func TestDirStoreListSkipsTempAndDirs(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirStore(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".a-123.tmp"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real"), nil, 0o644))

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, names)
}

func TestMemoryStoreOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Put(ctx, "f", strings.NewReader("1")))
	require.NoError(t, m.Rename(ctx, "f", "f.0"))
	require.NoError(t, m.Delete(ctx, "f.0"))

	assert.Equal(t, []string{"put f", "rename f f.0", "delete f.0"}, m.Ops())
	m.ResetOps()
	assert.Empty(t, m.Ops())
}

func TestThrottledLimitsRate(t *testing.T) {
	ctx := context.Background()
	s := NewThrottled(NewMemoryStore(), 20)

	start := time.Now()
	for range 4 {
		_, err := s.List(ctx)
		require.NoError(t, err)
	}
	// The first call uses the burst; three more wait 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	tests := []struct {
		name    string
		cfg     types.RemoteConfig
		want    any
		wantErr error
	}{
		{"plain path", types.RemoteConfig{URL: filepath.Join(root, "a")}, &DirStore{}, nil},
		{"file url", types.RemoteConfig{URL: "file://" + filepath.Join(root, "b")}, &DirStore{}, nil},
		{"throttled", types.RemoteConfig{URL: filepath.Join(root, "c"), RateLimit: 5}, &Throttled{}, nil},
		{"empty", types.RemoteConfig{}, nil, types.ErrRemoteEmpty},
		{"unknown scheme", types.RemoteConfig{URL: "s3://bucket"}, nil, ErrUnsupportedScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestFTPErrorMapsNotFound(t *testing.T) {
	err := ftpError("retrieving", "x", &textproto.Error{Code: 550, Msg: "No such file"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = ftpError("retrieving", "x", &textproto.Error{Code: 421, Msg: "Timeout"})
	assert.NotErrorIs(t, err, types.ErrNotFound)
}
