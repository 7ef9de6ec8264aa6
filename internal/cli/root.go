package cli

import (
	"os"

	"github.com/missionkit/missionctl/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "missionctl",
		Short:        "missionctl - mission control for local agent orchestration",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override missionctl home directory (default: ~/.missionctl, env: MISSIONCTL_HOME)")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newStatsCmd())

	// Hidden internal subcommand used by `missionctl start` for background mode.
	cmd.AddCommand(newDaemonCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
