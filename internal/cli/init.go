package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthurljones/sqlite-diff/internal/paths"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and work directories",
		Long:  "Create the configuration directory with a default config.yaml, and the work directory.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return userError(fmt.Errorf("resolve config dir: %w", err))
	}
	workDir, err := paths.ResolveWorkDir(flags.workDir, "")
	if err != nil {
		return userError(fmt.Errorf("resolve work dir: %w", err))
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}
	created, err := writeConfigIfMissing(configPath(configDir))
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create work directory: %w", err))
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Wrote %s\n", configPath(configDir))
	} else {
		fmt.Fprintf(out, "Keeping existing %s\n", configPath(configDir))
	}
	fmt.Fprintf(out, "Work directory: %s\n", workDir)
	return nil
}
