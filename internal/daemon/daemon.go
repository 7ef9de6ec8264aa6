// Package daemon runs missionctl as a long-lived process: a singleton lock,
// pid/addr files under <home>/protected, the HTTP API, and the periodic agent
// refresh loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/missionkit/missionctl/internal/capabilities"
	"github.com/missionkit/missionctl/internal/config"
	"github.com/missionkit/missionctl/internal/httpapi"
	"github.com/missionkit/missionctl/internal/mission"
	"github.com/missionkit/missionctl/internal/otel"
	"github.com/missionkit/missionctl/internal/runtime"
	"github.com/missionkit/missionctl/internal/store"
)

var errNotRunning = errors.New("missionctl is not running")

// buildRuntime selects the agent runtime from options and config.
func buildRuntime(opts StartOptions, cfg config.Config) runtime.Runtime {
	kind := opts.Runtime
	if kind == "" {
		kind = cfg.Runtime.Kind
	}
	switch kind {
	case "subprocess":
		cmd := opts.SubprocessCmd
		args := opts.SubprocessArgs
		if cmd == "" {
			cmd = cfg.Runtime.Command
			args = cfg.Runtime.Args
		}
		if cmd != "" {
			return &runtime.SubprocessRuntime{Command: cmd, Args: args}
		}
		slog.Warn("subprocess runtime selected without a command, falling back to stub")
	}
	return &runtime.StubRuntime{}
}

// buildNotifier registers the integrations present in config. A nil return
// means no notifications are configured.
func buildNotifier(nc config.NotificationsConfig) *capabilities.Registry {
	if nc.SlackWebhook == "" && nc.WebhookURL == "" {
		return nil
	}
	reg := capabilities.NewRegistry()
	if nc.SlackWebhook != "" {
		reg.Register(capabilities.SlackWebhook{WebhookURL: nc.SlackWebhook, Channel: nc.SlackChannel, Username: "missionctl"})
	}
	if nc.WebhookURL != "" {
		reg.Register(capabilities.Webhook{URL: nc.WebhookURL})
	}
	return reg
}

// StartForeground runs the daemon in this process until ctx is cancelled.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}

	cfg, err := config.Load(opts.Home)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Port == 0 {
		opts.Port = cfg.Port
	}
	refresh := time.Duration(cfg.RefreshSeconds) * time.Second
	if opts.RefreshSec > 0 {
		refresh = time.Duration(opts.RefreshSec) * time.Second
	}
	if !opts.EnableOtel {
		opts.EnableOtel = cfg.EnableOtel
	}

	// Ensure dirs exist.
	if err := os.MkdirAll(protectedDir(opts.Home), 0o755); err != nil {
		return err
	}

	// Acquire singleton lock (released on exit).
	lock, err := acquireLock(lockPath(opts.Home))
	if err != nil {
		return err
	}
	defer lock.release()

	// Optional pprof.
	startPprof(opts.PprofAddr)

	// Ensure DB schema exists before serving.
	if err := store.EnsureSchema(opts.Home); err != nil {
		return err
	}

	// Write PID + addr files.
	pid := os.Getpid()
	if err := os.WriteFile(pidPath(opts.Home), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return err
	}
	addr := fmt.Sprintf("0.0.0.0:%d", opts.Port)
	_ = os.WriteFile(addrPath(opts.Home), []byte(addr+"\n"), 0o644)
	defer func() {
		_ = os.Remove(pidPath(opts.Home))
		_ = os.Remove(addrPath(opts.Home))
	}()

	// Early port check for clearer error.
	if err := checkPortAvailable(opts.Port); err != nil {
		return err
	}

	st, err := store.Open(opts.Home)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	rt := buildRuntime(opts, cfg)
	ctrl := mission.New(st, rt, mission.Options{
		Home:         opts.Home,
		MessageBound: cfg.MessageBound,
		Notifier:     buildNotifier(cfg.Notifications),
	})
	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	srvOpts := httpapi.ServerOptions{
		Addr:   addr,
		Dev:    opts.Dev,
		APIKey: os.Getenv("MISSIONCTL_API_KEY"),
	}
	if opts.EnableOtel {
		metricsHandler, err := otel.InitMeterProvider(ctx, "missionctl")
		if err != nil {
			slog.Warn("otel init failed, using plain metrics", "err", err)
		} else {
			srvOpts.MetricsHandler = metricsHandler
			srvOpts.UseOtelHTTP = true
			_ = otel.InitMetricsWithCounts(ctx,
				func() map[string]int64 {
					stats := ctrl.Statistics()
					out := make(map[string]int64, len(stats.TasksByStatus))
					for s, n := range stats.TasksByStatus {
						out[string(s)] = int64(n)
					}
					return out
				},
				func() (total, active int64) {
					stats := ctrl.Statistics()
					return int64(stats.TotalAgents), int64(stats.ActiveAgents)
				})
		}
	}
	app := httpapi.NewApp(ctrl, srvOpts)

	slog.Info("daemon starting", "addr", addr, "home", opts.Home, "runtime", rt.Name())
	errCh := make(chan error, 1)
	go func() {
		// Agent refresh runs alongside the HTTP server and publishes SSE events.
		go ctrl.RunRefresh(ctx, refresh)
		errCh <- app.Server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = app.Server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartBackground re-execs this binary as a detached daemon process.
func StartBackground(ctx context.Context, opts StartOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	// Ensure dirs exist before starting.
	if err := os.MkdirAll(protectedDir(opts.Home), 0o755); err != nil {
		return 0, err
	}

	// Best-effort: refuse to start if already running.
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("missionctl already running (pid %d)", st.PID)
	}

	logFile := filepath.Join(protectedDir(opts.Home), "daemon.log")
	stderr, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// Kept open for child lifetime; closing here may break writes on some platforms.

	args := []string{
		"daemon",
		"--home", opts.Home,
	}
	if opts.Port != 0 {
		args = append(args, "--port", strconv.Itoa(opts.Port))
	}
	if opts.RefreshSec > 0 {
		args = append(args, "--refresh", strconv.Itoa(opts.RefreshSec))
	}
	if opts.Runtime != "" {
		args = append(args, "--runtime", opts.Runtime)
	}
	if opts.SubprocessCmd != "" {
		args = append(args, "--runtime-cmd", opts.SubprocessCmd)
	}
	if opts.Dev {
		args = append(args, "--dev")
	}
	if opts.EnableOtel {
		args = append(args, "--otel")
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	setDaemonSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	// Wait briefly for pid file to appear or process to die.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := Status(ctx, opts.Home); st.Running {
			return st.PID, nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	// Fallback to started pid even if status isn't ready yet.
	return cmd.Process.Pid, nil
}

// Stop signals a running daemon and waits for it to exit.
func Stop(ctx context.Context, home string) (bool, error) {
	st, err := Status(ctx, home)
	if err != nil {
		return false, err
	}
	if !st.Running {
		return false, nil
	}

	proc, err := os.FindProcess(st.PID)
	if err != nil {
		// On unix FindProcess always succeeds; keep this for completeness.
		return false, errNotRunning
	}
	if err := signalTerm(proc); err != nil {
		return false, err
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if st2, _ := Status(ctx, home); !st2.Running {
			return true, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	_ = proc.Kill()
	return true, nil
}

// Status reports whether a daemon is running for this home.
func Status(ctx context.Context, home string) (StatusInfo, error) {
	pb, err := os.ReadFile(pidPath(home))
	if err != nil {
		return StatusInfo{Running: false}, nil
	}
	pidStr := strings.TrimSpace(string(pb))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return StatusInfo{Running: false}, nil
	}

	if !processExists(pid) {
		_ = os.Remove(pidPath(home))
		return StatusInfo{Running: false}, nil
	}

	addr := ""
	if ab, err := os.ReadFile(addrPath(home)); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	if addr == "" {
		addr = "unknown"
	}
	return StatusInfo{Running: true, PID: pid, Addr: addr}, nil
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("port %d is already in use", port)
	}
	_ = ln.Close()
	return nil
}
