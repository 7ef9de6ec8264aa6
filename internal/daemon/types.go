package daemon

// StartOptions configures the daemon process.
type StartOptions struct {
	Home           string
	Port           int
	RefreshSec     int      // agent refresh interval, 0 means the config/default value
	Dev            bool     // relax CORS for dashboard dev servers
	PprofAddr      string   // if set, serve pprof on this addr
	Runtime        string   // "stub" (default) or "subprocess"
	SubprocessCmd  string   // runtime=subprocess: worker binary
	SubprocessArgs []string // runtime=subprocess: extra args
	EnableOtel     bool     // OpenTelemetry metrics (Prometheus exporter + HTTP instrumentation)
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}
