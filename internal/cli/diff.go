package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "diff [previous-snapshot]",
		Short: "Generate a snapshot and changeset locally without publishing",
		Long: "Diff the source table against a local snapshot file (compressed or not)\n" +
			"and write the new snapshot and changeset to --out. Without a previous\n" +
			"snapshot every row is reported as added.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return userError(err)
			}
			previous := ""
			if len(args) == 1 {
				previous = args[0]
				if _, err := os.Stat(previous); err != nil {
					return userError(fmt.Errorf("previous snapshot: %w", err))
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create output dir: %w", err))
			}

			ctx := cmd.Context()
			p, closeAll, err := openPipeline(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, closeAll())
			}()

			rep, err := p.Generate(ctx, previous, outDir)
			if err != nil {
				return sysError(fmt.Errorf("diff: %w", err))
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write artifacts to")
	return cmd
}
