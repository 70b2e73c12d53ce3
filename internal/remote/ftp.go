package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// FTPOptions configures an FTP connection.
type FTPOptions struct {
	Addr     string // host:port
	Dir      string // working directory; empty keeps the login directory
	Username string
	Password string
	Timeout  time.Duration
}

// FTPStore is a RemoteStore over one FTP control connection. Calls are
// serialized; a reader returned by Get must be closed before the next call.
type FTPStore struct {
	mu   sync.Mutex
	conn *ftp.ServerConn
}

var _ types.RemoteStore = (*FTPStore)(nil)

// DialFTP connects, logs in and changes to opts.Dir.
func DialFTP(ctx context.Context, opts FTPOptions) (*FTPStore, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = types.DefaultRemoteTimeout
	}
	conn, err := ftp.Dial(opts.Addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Addr, err)
	}

	user := opts.Username
	if user == "" {
		user = "anonymous"
	}
	if err := conn.Login(user, opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, fmt.Errorf("logging in to %s: %w", opts.Addr, err)
	}
	if opts.Dir != "" {
		if err := conn.ChangeDir(opts.Dir); err != nil {
			conn.Quit() //nolint:errcheck
			return nil, fmt.Errorf("changing to %s: %w", opts.Dir, err)
		}
	}
	return &FTPStore{conn: conn}, nil
}

func (s *FTPStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.conn.List("")
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		names = append(names, path.Base(e.Name))
	}
	return names, nil
}

func (s *FTPStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.conn.Retr(name)
	if err != nil {
		return nil, ftpError("retrieving", name, err)
	}
	return resp, nil
}

func (s *FTPStore) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Stor(name, r); err != nil {
		return ftpError("storing", name, err)
	}
	return nil
}

func (s *FTPStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Delete(name); err != nil {
		return ftpError("deleting", name, err)
	}
	return nil
}

func (s *FTPStore) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(oldName); err != nil {
		return err
	}
	if err := validName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Rename(oldName, newName); err != nil {
		return ftpError("renaming", oldName, err)
	}
	return nil
}

// Close sends QUIT and closes the connection.
func (s *FTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Quit()
}

// ftpError maps "file unavailable" replies to ErrNotFound.
func ftpError(op, name string, err error) error {
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("%s %s: %w", op, name, types.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}
