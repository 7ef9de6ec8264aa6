package cli

import (
	"fmt"

	"github.com/missionkit/missionctl/pkg/models"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show mission statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			stats, err := api.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			done := stats.TasksByStatus[models.StatusDone]
			_, _ = fmt.Fprintf(out, "Tasks: %d total, %d done (%.0f%% completion)\n",
				stats.TotalTasks, done, stats.CompletionRate*100)
			for _, s := range models.TaskStatuses {
				_, _ = fmt.Fprintf(out, "  %-12s %d\n", s, stats.TasksByStatus[s])
			}
			_, _ = fmt.Fprintf(out, "Agents: %d total, %d working\n", stats.TotalAgents, stats.ActiveAgents)
			return nil
		},
	}
	return cmd
}
