package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work through a task's planning questions",
	}
	cmd.AddCommand(newPlanShowCmd())
	cmd.AddCommand(newPlanAnswerCmd())
	cmd.AddCommand(newPlanSkipCmd())
	return cmd
}

func newPlanShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show the current planning question and recorded answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			qa, current, err := api.PlanningState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, pair := range qa {
				_, _ = fmt.Fprintf(out, "Q: %s\nA: %s\n", pair.Question, pair.Answer)
			}
			if current.Question != "" {
				_, _ = fmt.Fprintf(out, "Next question: %s\n", current.Question)
			} else {
				_, _ = fmt.Fprintln(out, "Planning complete")
			}
			return nil
		},
	}
	return cmd
}

func newPlanAnswerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer <task-id> <answer...>",
		Short: "Answer the current planning question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			answer := strings.Join(args[1:], " ")
			t, done, err := api.AnswerPlanning(cmd.Context(), args[0], answer)
			if err != nil {
				return err
			}
			if done {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Planning complete, task %s moved to %s\n", t.TaskID, t.Status)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Answer recorded")
			return nil
		},
	}
	return cmd
}

func newPlanSkipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip <task-id>",
		Short: "Skip the current planning question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			t, done, err := api.SkipPlanning(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if done {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Planning complete, task %s moved to %s\n", t.TaskID, t.Status)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Question skipped")
			return nil
		},
	}
	return cmd
}
