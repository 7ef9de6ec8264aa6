package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/missionkit/missionctl/pkg/models"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskMoveCmd())
	cmd.AddCommand(newTaskAssignCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var description string
	var priority string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task (it enters the planning stage)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			t, err := api.CreateTask(cmd.Context(), args[0], description, models.Priority(priority))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s)\n", t.TaskID, t.Status)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Answer the planning questions with `missionctl plan answer` (or `plan skip`)")
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "medium", "Priority: low, medium, high, urgent")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, most recently touched first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			tasks, err := api.ListTasks(cmd.Context(), models.TaskStatus(status))
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tASSIGNEE\tTITLE")
			for _, t := range tasks {
				assignee := t.AssignedAgent
				if assignee == "" {
					assignee = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TaskID, t.Status, t.Priority, assignee, t.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (planning, inbox, assigned, in_progress, testing, review, done)")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its planning answers and deliverables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			t, err := api.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Task %s\n", t.TaskID)
			_, _ = fmt.Fprintf(out, "  Title:    %s\n", t.Title)
			_, _ = fmt.Fprintf(out, "  Status:   %s\n", t.Status)
			_, _ = fmt.Fprintf(out, "  Priority: %s\n", t.Priority)
			if t.Description != "" {
				_, _ = fmt.Fprintf(out, "  Description: %s\n", t.Description)
			}
			if t.AssignedAgent != "" {
				_, _ = fmt.Fprintf(out, "  Assignee: %s\n", t.AssignedAgent)
			}
			if len(t.PlanningQA) > 0 {
				_, _ = fmt.Fprintln(out, "  Planning:")
				for _, qa := range t.PlanningQA {
					_, _ = fmt.Fprintf(out, "    Q: %s\n    A: %s\n", qa.Question, qa.Answer)
				}
			}
			if len(t.Deliverables) > 0 {
				_, _ = fmt.Fprintln(out, "  Deliverables:")
				for _, d := range t.Deliverables {
					_, _ = fmt.Fprintf(out, "    %s (%s)\n", d.Name, d.Type)
				}
			}
			return nil
		},
	}
	return cmd
}

func newTaskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to a status (no transition restrictions)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			t, err := api.MoveTask(cmd.Context(), args[0], models.TaskStatus(args[1]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s moved to %s\n", t.TaskID, t.Status)
			return nil
		},
	}
	return cmd
}

func newTaskAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <task-id> <agent>",
		Short: "Assign a task to an existing agent (by ID or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			t, err := api.AssignTask(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s assigned to %s\n", t.TaskID, t.AssignedAgent)
			return nil
		},
	}
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task (frees any agent assigned to it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			if err := api.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
	return cmd
}
