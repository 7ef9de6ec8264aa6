package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/store"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the home directory and store are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			var problems []string

			if err := os.MkdirAll(home, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("home %s not writable: %v", home, err))
			}
			if _, err := config.Load(home); err != nil {
				problems = append(problems, fmt.Sprintf("config.yaml unreadable: %v", err))
			}
			if len(problems) == 0 {
				if err := store.EnsureSchema(home); err != nil {
					problems = append(problems, fmt.Sprintf("store schema check failed: %v", err))
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
