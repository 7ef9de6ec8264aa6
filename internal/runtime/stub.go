package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/missionkit/missionctl/pkg/models"
)

// StubRuntime is a deterministic local runtime that emits plausible session
// events without any network or subprocess I/O. Sessions stay open until Stop
// is called, or end on their own after AutoCompleteAfter when set.
type StubRuntime struct {
	// AutoCompleteAfter, when > 0, ends each session with a session_ended
	// event after the delay.
	AutoCompleteAfter time.Duration
	// SpawnErr, when set, makes Spawn fail (for error-path tests).
	SpawnErr error

	mu       sync.Mutex
	sessions map[string]*stubSession
}

type stubSession struct {
	req    SpawnRequest
	emit   func(Event)
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *StubRuntime) Name() string { return "stub" }

func (s *StubRuntime) Spawn(ctx context.Context, req SpawnRequest, emit func(Event)) (Session, error) {
	if s.SpawnErr != nil {
		return Session{}, s.SpawnErr
	}
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	handle := "stub-" + models.NewID()
	sctx, cancel := context.WithCancel(context.Background())
	sess := &stubSession{req: req, emit: emit, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*stubSession)
	}
	s.sessions[handle] = sess
	s.mu.Unlock()

	emit(Event{
		Type:      EventSessionStarted,
		Handle:    handle,
		AgentID:   req.AgentID,
		TaskID:    req.TaskID,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"role": req.Role},
	})
	emit(Event{
		Type:      EventAgentActivity,
		Handle:    handle,
		AgentID:   req.AgentID,
		TaskID:    req.TaskID,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"tool": "think", "summary": "stub session simulated a step"},
	})

	if s.AutoCompleteAfter > 0 {
		go func() {
			t := time.NewTimer(s.AutoCompleteAfter)
			defer t.Stop()
			select {
			case <-sctx.Done():
				return
			case <-t.C:
				s.end(handle, "completed")
			}
		}()
	}
	return Session{Handle: handle}, nil
}

func (s *StubRuntime) Stop(ctx context.Context, handle string) error {
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	s.mu.Unlock()
	if !ok {
		return errors.New("unknown session handle: " + handle)
	}
	sess.cancel()
	s.end(handle, "stopped")
	return nil
}

func (s *StubRuntime) end(handle, outcome string) {
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	if ok {
		delete(s.sessions, handle)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.emit(Event{
		Type:      EventSessionEnded,
		Handle:    handle,
		AgentID:   sess.req.AgentID,
		TaskID:    sess.req.TaskID,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"outcome": outcome},
	})
	close(sess.done)
}

// EndSession force-ends a session as if the worker finished (test hook).
func (s *StubRuntime) EndSession(handle string) {
	s.end(handle, "completed")
}
