package cli

import (
	"fmt"

	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/daemon"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show missionctl daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := daemon.Status(cmd.Context(), home)
			if err != nil {
				return err
			}
			if !st.Running {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "missionctl not running")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "missionctl running (pid %d, addr %s)\n", st.PID, st.Addr)
			return nil
		},
	}
	return cmd
}
