package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Owner returns a lock holder description: a time-ordered run id, the host
// name and the UTC start time.
func Owner(now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	host, _ := os.Hostname()
	return fmt.Sprintf("%s %s %s", id, host, now.UTC().Format(time.RFC3339))
}

// Lock takes the advisory lock by creating the lock file. It fails with a
// *types.LockError when another run holds it. Check and create are separate
// remote calls, so two runs starting together can both succeed.
func (s *Session) Lock(ctx context.Context, owner string) error {
	name := s.opts.LockName
	if name == "" {
		return nil
	}
	if s.Exists(name) {
		holder, err := s.download(ctx, name)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return err
		}
		if err == nil {
			return &types.LockError{Name: name, Holder: strings.TrimSpace(string(holder))}
		}
	}
	if err := s.store.Put(ctx, name, strings.NewReader(owner)); err != nil {
		return fmt.Errorf("creating lock %s: %w", name, err)
	}
	s.known[name] = true
	s.locked = true
	return nil
}

// Unlock removes the lock file if this session holds it.
func (s *Session) Unlock(ctx context.Context) error {
	if !s.locked {
		return nil
	}
	name := s.opts.LockName
	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("removing lock %s: %w", name, err)
	}
	delete(s.known, name)
	s.locked = false
	return nil
}
