package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/internal/logger"
	"github.com/arthurljones/sqlite-diff/internal/pipeline"
	"github.com/arthurljones/sqlite-diff/internal/remote"
	"github.com/arthurljones/sqlite-diff/internal/source"
	"github.com/arthurljones/sqlite-diff/internal/sqlite"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// openPipeline wires the collaborators for cfg. The remote store is opened
// only when withRemote is set. The returned close func releases everything.
func openPipeline(ctx context.Context, cfg types.Config, withRemote bool) (*pipeline.Pipeline, func() error, error) {
	comp, err := compress.New(cfg.Compression)
	if err != nil {
		return nil, nil, userError(err)
	}

	src, err := source.OpenFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("open source: %w", err))
	}
	closers := []func() error{src.Close}

	deps := pipeline.Deps{
		Source:     src,
		Snapshots:  sqlite.NewStoreFromConfig(cfg),
		Compressor: comp,
		Progress:   logger.NewProgress(),
		Now:        timeNow,
	}
	if withRemote {
		store, err := remote.Open(ctx, cfg.Remote)
		if err != nil {
			_ = src.Close()
			return nil, nil, sysError(fmt.Errorf("open remote: %w", err))
		}
		deps.Remote = store
		closers = append(closers, store.Close)
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return pipeline.New(cfg, deps), closeAll, nil
}

// loadRemoteConfig loads config for commands that only talk to the remote.
// Source and table settings are not checked.
func loadRemoteConfig() (types.Config, types.Compressor, error) {
	cfg, err := readConfig()
	if err != nil {
		return types.Config{}, nil, userError(err)
	}
	if err := cfg.ValidateRemote(); err != nil {
		return types.Config{}, nil, userError(err)
	}
	comp, err := compress.New(cfg.Compression)
	if err != nil {
		return types.Config{}, nil, userError(err)
	}
	return cfg, comp, nil
}
