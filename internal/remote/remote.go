// Package remote implements the flat file namespace artifacts are published
// to: an FTP server, a local directory, or memory for tests.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// ErrUnsupportedScheme is returned by Open for URLs it cannot serve.
var ErrUnsupportedScheme = errors.New("unsupported remote scheme")

// Open connects to the remote named by cfg.URL. ftp:// URLs dial an FTP
// server; file:// URLs and plain paths use a local directory. A positive
// rate limit wraps the store in a throttle.
func Open(ctx context.Context, cfg types.RemoteConfig) (types.RemoteStore, error) {
	if cfg.URL == "" {
		return nil, types.ErrRemoteEmpty
	}

	var (
		store types.RemoteStore
		err   error
	)
	switch scheme, rest, found := strings.Cut(cfg.URL, "://"); {
	case !found:
		store, err = NewDirStore(cfg.URL)
	case scheme == "file":
		store, err = NewDirStore(rest)
	case scheme == "ftp":
		store, err = dialFromURL(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		store = NewThrottled(store, cfg.RateLimit)
	}
	return store, nil
}

func dialFromURL(ctx context.Context, cfg types.RemoteConfig) (*FTPStore, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	opts := FTPOptions{
		Addr:     u.Host,
		Dir:      strings.TrimPrefix(path.Clean("/"+u.Path), "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	}
	if u.Port() == "" {
		opts.Addr = u.Hostname() + ":21"
	}
	if u.User != nil {
		if opts.Username == "" {
			opts.Username = u.User.Username()
		}
		if p, ok := u.User.Password(); ok && opts.Password == "" {
			opts.Password = p
		}
	}
	return DialFTP(ctx, opts)
}

// validName rejects names that would escape the flat namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid remote name %q", name)
	}
	return nil
}
