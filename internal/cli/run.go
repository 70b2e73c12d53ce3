package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthurljones/sqlite-diff/internal/pipeline"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

func newRunCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Diff the source table and publish the result",
		Long: "Fetch the manifest and latest snapshot from the remote store, diff the\n" +
			"source table against it, and publish the new snapshot, changeset and\n" +
			"manifest. With --every, repeat until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return userError(err)
			}
			if err := cfg.ValidateRemote(); err != nil {
				return userError(err)
			}

			if every <= 0 {
				return runOnce(cmd, cfg)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return pipeline.Every(ctx, every, func(context.Context) error {
				return runOnce(cmd, cfg)
			})
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the run at this interval until interrupted")
	return cmd
}

func runOnce(cmd *cobra.Command, cfg types.Config) (err error) {
	ctx := cmd.Context()
	p, closeAll, err := openPipeline(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeAll())
	}()

	rep, err := p.Run(ctx)
	if err != nil {
		if rep != nil && errors.Is(err, types.ErrTableEmptied) {
			_ = printReport(cmd.OutOrStdout(), rep)
		}
		return sysError(fmt.Errorf("run: %w", err))
	}
	return printReport(cmd.OutOrStdout(), rep)
}
