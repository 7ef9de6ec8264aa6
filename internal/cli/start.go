package cli

import (
	"fmt"

	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/daemon"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var (
		port           int
		foreground     bool
		refreshSec     int
		dev            bool
		pprofAddr      string
		runtimeKind    string
		subprocessCmd  string
		subprocessArgs []string
		enableOtel     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the missionctl daemon (HTTP API + agent refresh loop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			opts := daemon.StartOptions{
				Home:           home,
				Port:           port,
				RefreshSec:     refreshSec,
				Dev:            dev,
				PprofAddr:      pprofAddr,
				Runtime:        runtimeKind,
				SubprocessCmd:  subprocessCmd,
				SubprocessArgs: subprocessArgs,
				EnableOtel:     enableOtel,
			}

			if foreground {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting missionctl in foreground on port %d\n", effectivePort(home, port))
				return daemon.StartForeground(cmd.Context(), opts)
			}

			pid, err := daemon.StartBackground(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "missionctl started (pid %d)\n", pid)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API: http://localhost:%d\n", effectivePort(home, port))
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port for the HTTP API (default from config.yaml, else 3747)")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (do not daemonize)")
	cmd.Flags().IntVar(&refreshSec, "refresh", 0, "Agent refresh interval in seconds (default from config.yaml, else 30)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (CORS for dashboard dev servers)")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "Enable pprof on address (e.g. 127.0.0.1:6060)")
	cmd.Flags().StringVar(&runtimeKind, "runtime", "", "Runtime: stub or subprocess (default from config.yaml)")
	cmd.Flags().StringVar(&subprocessCmd, "runtime-cmd", "", "Command for subprocess runtime (e.g. agent-worker)")
	cmd.Flags().StringSliceVar(&subprocessArgs, "runtime-args", nil, "Args for subprocess runtime")
	cmd.Flags().BoolVar(&enableOtel, "otel", false, "Enable OpenTelemetry metrics (Prometheus exporter, HTTP instrumentation)")

	return cmd
}

// effectivePort resolves the port the daemon will listen on for display.
func effectivePort(home string, flagPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	cfg, err := config.Load(home)
	if err != nil {
		return config.DefaultConfig().Port
	}
	return cfg.Port
}
