package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Replay/internal/config"
)

// ExitError завершает процесс с заданным кодом.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// globalOptions — флаги, общие для всех команд.
type globalOptions struct {
	configPath string
	jsonOutput bool
}

// NewRootCmd создаёт корневую команду replay-worker.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "replay-worker",
		Short:         "Replay worker — runs recorded browser automations",
		Long:          "Replay worker — runs recorded browser automations.\n\nEnvironment:\n" + config.Usage(),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment overrides it)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		NewServeCmd(opts),
		NewExecCmd(opts),
		NewRunCmd(opts),
	)
	return rootCmd
}
