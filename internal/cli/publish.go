package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthurljones/sqlite-diff/internal/logger"
	"github.com/arthurljones/sqlite-diff/internal/pipeline"
	"github.com/arthurljones/sqlite-diff/internal/publish"
	"github.com/arthurljones/sqlite-diff/internal/remote"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <dir>",
		Short: "Compress and publish every file in a directory",
		Long: "Compress each file in <dir> (checksum and HTML files are sent as they\n" +
			"are, already compressed files are skipped), publish it with rotation,\n" +
			"record it in the manifest and publish the manifest.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			dir := args[0]
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return userError(fmt.Errorf("%s is not a directory", dir))
			}
			cfg, comp, err := loadRemoteConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := remote.Open(ctx, cfg.Remote)
			if err != nil {
				return sysError(fmt.Errorf("open remote: %w", err))
			}
			defer func() {
				err = errors.Join(err, store.Close())
			}()

			session, err := openSession(cmd, cfg, comp, store)
			if err != nil {
				return err
			}
			defer session.Cleanup()

			if err := session.Lock(ctx, publish.Owner(timeNow())); err != nil {
				return sysError(err)
			}
			defer func() {
				err = errors.Join(err, releaseLock(ctx, session))
			}()

			m, err := session.FetchManifest(ctx)
			if err != nil {
				return sysError(fmt.Errorf("fetch manifest: %w", err))
			}
			m, err = session.PublishDir(ctx, dir, m)
			if err != nil {
				return sysError(fmt.Errorf("publish %s: %w", dir, err))
			}
			return printManifest(cmd.OutOrStdout(), m)
		},
	}
}

// releaseLock removes the lock even when ctx is already cancelled.
func releaseLock(ctx context.Context, session *publish.Session) error {
	return session.Unlock(context.WithoutCancel(ctx))
}

func openSession(cmd *cobra.Command, cfg types.Config, comp types.Compressor, store types.RemoteStore) (*publish.Session, error) {
	lockName := ""
	if cfg.Remote.Lock {
		lockName = pipeline.LockName
	}
	session, err := publish.Open(cmd.Context(), store, comp, logger.NewProgress(), publish.Options{
		ManifestName: cfg.Manifest.Name,
		ChecksumName: cfg.Manifest.ChecksumName,
		MaxVersions:  cfg.MaxPreviousVersions,
		WorkDir:      cfg.WorkDir,
		LockName:     lockName,
	})
	if err != nil {
		return nil, sysError(fmt.Errorf("open remote session: %w", err))
	}
	return session, nil
}
