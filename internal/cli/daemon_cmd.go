package cli

import (
	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/daemon"
	"github.com/spf13/cobra"
)

func newDaemonCmd() *cobra.Command {
	var (
		port           int
		refreshSec     int
		dev            bool
		pprofAddr      string
		runtimeKind    string
		subprocessCmd  string
		subprocessArgs []string
		enableOtel     bool
	)

	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Internal: run daemon process",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			return daemon.StartForeground(cmd.Context(), daemon.StartOptions{
				Home:           home,
				Port:           port,
				RefreshSec:     refreshSec,
				Dev:            dev,
				PprofAddr:      pprofAddr,
				Runtime:        runtimeKind,
				SubprocessCmd:  subprocessCmd,
				SubprocessArgs: subprocessArgs,
				EnableOtel:     enableOtel,
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port for the HTTP API")
	cmd.Flags().IntVar(&refreshSec, "refresh", 0, "Agent refresh interval in seconds")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "Enable pprof on address (e.g. 127.0.0.1:6060)")
	cmd.Flags().StringVar(&runtimeKind, "runtime", "", "Runtime: stub or subprocess")
	cmd.Flags().StringVar(&subprocessCmd, "runtime-cmd", "", "Command for subprocess runtime")
	cmd.Flags().StringSliceVar(&subprocessArgs, "runtime-args", nil, "Args for subprocess runtime")
	cmd.Flags().BoolVar(&enableOtel, "otel", false, "Enable OpenTelemetry metrics")

	return cmd
}
