package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/missionkit/missionctl/pkg/models"
)

// SubprocessRuntime runs one local worker process per session: stdin = JSON
// SpawnRequest, stdout = NDJSON events per line. When the process exits, a
// session_ended event is emitted (unless the worker already sent one).
type SubprocessRuntime struct {
	Command string
	Args    []string

	mu       sync.Mutex
	sessions map[string]*subprocessSession
}

type subprocessSession struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (r *SubprocessRuntime) Name() string { return "subprocess" }

func (r *SubprocessRuntime) Spawn(ctx context.Context, req SpawnRequest, emit func(Event)) (Session, error) {
	if r.Command == "" {
		return Session{}, errors.New("subprocess command is required")
	}
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	// The session outlives the spawn call; it is bound to its own context so
	// cancelling the spawn caller does not kill a running worker.
	sctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(sctx, r.Command, r.Args...)

	reqJSON, err := json.Marshal(req)
	if err != nil {
		cancel()
		return Session{}, err
	}
	cmd.Stdin = strings.NewReader(string(reqJSON) + "\n")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return Session{}, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return Session{}, err
	}

	handle := "proc-" + models.NewID()
	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*subprocessSession)
	}
	r.sessions[handle] = &subprocessSession{cmd: cmd, cancel: cancel}
	r.mu.Unlock()

	emit(Event{
		Type:      EventSessionStarted,
		Handle:    handle,
		AgentID:   req.AgentID,
		TaskID:    req.TaskID,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"pid": cmd.Process.Pid, "role": req.Role},
	})

	go r.stream(handle, req, stdout, emit)
	return Session{Handle: handle}, nil
}

// stream forwards worker NDJSON events until the process exits.
func (r *SubprocessRuntime) stream(handle string, req SpawnRequest, stdout interface{ Read([]byte) (int, error) }, emit func(Event)) {
	sawEnd := false
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// Non-JSON output becomes activity so nothing is silently lost.
			ev = Event{Type: EventAgentActivity, Data: map[string]any{"output": line}}
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
		ev.Handle = handle
		if ev.AgentID == "" {
			ev.AgentID = req.AgentID
		}
		if ev.TaskID == "" {
			ev.TaskID = req.TaskID
		}
		if ev.Type == EventSessionEnded {
			sawEnd = true
		}
		emit(ev)
	}

	r.mu.Lock()
	sess, ok := r.sessions[handle]
	if ok {
		delete(r.sessions, handle)
	}
	r.mu.Unlock()

	if ok {
		if err := sess.cmd.Wait(); err != nil {
			slog.Warn("worker subprocess exited with error", "handle", handle, "err", err)
		}
		sess.cancel()
	}
	if !sawEnd {
		emit(Event{
			Type:      EventSessionEnded,
			Handle:    handle,
			AgentID:   req.AgentID,
			TaskID:    req.TaskID,
			Timestamp: time.Now().UTC(),
			Data:      map[string]any{"outcome": "exited"},
		})
	}
}

func (r *SubprocessRuntime) Stop(ctx context.Context, handle string) error {
	r.mu.Lock()
	sess, ok := r.sessions[handle]
	r.mu.Unlock()
	if !ok {
		return errors.New("unknown session handle: " + handle)
	}
	// Cancel kills the process; the stream goroutine emits session_ended.
	sess.cancel()
	return nil
}
