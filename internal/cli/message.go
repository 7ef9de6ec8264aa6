package cli

import (
	"fmt"
	"strings"

	"github.com/missionkit/missionctl/pkg/models"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send and read agent messages",
	}
	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageListCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "send <text...>",
		Short: "Send a message to the log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			m, err := api.SendMessage(cmd.Context(), from, to, strings.Join(args, " "), models.MessageCommunication)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s\n", m.MessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "operator", "Sender name")
	cmd.Flags().StringVar(&to, "to", "", "Recipient name (empty for broadcast)")
	return cmd
}

func newMessageListCmd() *cobra.Command {
	var agent string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent messages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			msgs, err := api.ListMessages(cmd.Context(), agent, limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No messages")
				return nil
			}
			for _, m := range msgs {
				to := m.ToAgent
				if to == "" {
					to = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s -> %s: %s\n", m.CreatedAt.Format("15:04:05"), m.FromAgent, to, m.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Only messages sent by or to this agent")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max messages to show")
	return cmd
}
