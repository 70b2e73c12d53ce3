package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthurljones/sqlite-diff/internal/remote"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// timeNow is replaced in tests.
var timeNow = time.Now

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the published manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
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

			m, err := session.FetchManifest(ctx)
			if err != nil {
				return sysError(fmt.Errorf("fetch manifest: %w", err))
			}
			return printManifest(cmd.OutOrStdout(), m)
		},
	}
}

// printManifest writes m as JSON or as an aligned table.
func printManifest(w io.Writer, m types.Manifest) error {
	if flags.jsonMode {
		return printJSON(w, m)
	}
	if len(m) == 0 {
		fmt.Fprintln(w, "Manifest is empty")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tMD5")
	for _, e := range m {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.File, e.Size, e.Checksum)
	}
	return tw.Flush()
}
