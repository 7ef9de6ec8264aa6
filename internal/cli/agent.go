package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/missionkit/missionctl/pkg/client"
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents",
	}
	cmd.AddCommand(newAgentSpawnCmd())
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentStopCmd())
	cmd.AddCommand(newAgentDeleteCmd())
	return cmd
}

func newAgentSpawnCmd() *cobra.Command {
	var name, role, model string
	var capabilities []string

	cmd := &cobra.Command{
		Use:   "spawn <task-id>",
		Short: "Spawn an agent for a task (role inferred from the task when omitted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			agent, err := api.SpawnAgent(cmd.Context(), args[0], client.SpawnOptions{
				Name:         name,
				Role:         role,
				Model:        model,
				Capabilities: capabilities,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Spawned agent %s (%s, %s) on task %s\n", agent.Name, agent.AgentID, agent.Role, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Agent name (generated when omitted)")
	cmd.Flags().StringVar(&role, "role", "", "Agent role (inferred from task title/description when omitted)")
	cmd.Flags().StringVar(&model, "model", "", "Model for the agent session")
	cmd.Flags().StringSliceVar(&capabilities, "capability", nil, "Agent capability (repeatable)")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			agents, err := api.ListAgents(cmd.Context(), state)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No agents")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tROLE\tSTATUS\tTASK\tCOMPLETED")
			for _, a := range agents {
				task := a.CurrentTask
				if task == "" {
					task = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", a.AgentID, a.Name, a.Role, a.Status, task, a.TotalTasksCompleted)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Filter: available or working")
	return cmd
}

func newAgentStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <agent-id>",
		Short: "Stop a working agent (its task returns to inbox)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			agent, stopErr, err := api.StopAgent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopped agent %s (now %s)\n", agent.Name, agent.Status)
			if stopErr != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "runtime stop reported: %s\n", stopErr)
			}
			return nil
		},
	}
	return cmd
}

func newAgentDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Remove an agent from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			if err := api.DeleteAgent(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", args[0])
			return nil
		},
	}
	return cmd
}
