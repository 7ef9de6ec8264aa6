package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/daemon"
	"github.com/missionkit/missionctl/pkg/client"
	"github.com/spf13/cobra"
)

// apiClient connects to the running daemon for this home. Task, agent, and
// message commands go through the HTTP API so the daemon stays the single
// writer of the store.
func apiClient(cmd *cobra.Command) (*client.Client, error) {
	home := config.MustHomeFrom(cmd.Context())
	st, err := daemon.Status(cmd.Context(), home)
	if err != nil {
		return nil, err
	}
	if !st.Running {
		return nil, fmt.Errorf("missionctl is not running (start it with `missionctl start`)")
	}
	addr := st.Addr
	// The daemon binds 0.0.0.0; dial localhost.
	if host, port, ok := strings.Cut(addr, ":"); ok && (host == "0.0.0.0" || host == "") {
		addr = "localhost:" + port
	}
	return client.New("http://"+addr, os.Getenv("MISSIONCTL_API_KEY")), nil
}
