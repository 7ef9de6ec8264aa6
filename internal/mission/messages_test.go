package mission

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/missionkit/missionctl/internal/store"
	"github.com/missionkit/missionctl/pkg/models"
)

func TestMessageLog_MostRecentFirst(t *testing.T) {
	t.Parallel()
	l := NewMessageLog(store.NewMemStore(), 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Send(ctx, "a", "b", fmt.Sprintf("msg-%d", i), ""); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	got := l.QueryRecent(0)
	if len(got) != 3 {
		t.Fatalf("QueryRecent: got %d, want 3", len(got))
	}
	if got[0].Message != "msg-2" || got[2].Message != "msg-0" {
		t.Errorf("order: got %q ... %q, want msg-2 ... msg-0", got[0].Message, got[2].Message)
	}
}

func TestMessageLog_BoundTrimsOldest(t *testing.T) {
	t.Parallel()
	l := NewMessageLog(store.NewMemStore(), 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if _, err := l.Send(ctx, "a", "", fmt.Sprintf("msg-%d", i), ""); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if l.Len() != 5 {
		t.Fatalf("Len after overflow: got %d, want 5", l.Len())
	}
	got := l.QueryRecent(0)
	if got[0].Message != "msg-7" || got[4].Message != "msg-3" {
		t.Errorf("retained range: got %q ... %q, want msg-7 ... msg-3", got[0].Message, got[4].Message)
	}
}

func TestMessageLog_DefaultType(t *testing.T) {
	t.Parallel()
	l := NewMessageLog(store.NewMemStore(), 0)
	m, err := l.Send(context.Background(), "a", "", "hi", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.Type != models.MessageCommunication {
		t.Errorf("default type: got %q, want communication", m.Type)
	}
}

func TestMessageLog_QueryByAgent(t *testing.T) {
	t.Parallel()
	l := NewMessageLog(store.NewMemStore(), 0)
	ctx := context.Background()
	_, _ = l.Send(ctx, "alice", "bob", "one", "")
	_, _ = l.Send(ctx, "carol", "dave", "two", "")
	_, _ = l.Send(ctx, "bob", "alice", "three", "")

	got := l.QueryByAgent("alice", 0)
	if len(got) != 2 {
		t.Fatalf("QueryByAgent: got %d, want 2", len(got))
	}
	if got[0].Message != "three" || got[1].Message != "one" {
		t.Errorf("QueryByAgent order: got %q, %q", got[0].Message, got[1].Message)
	}
	if got := l.QueryByAgent("alice", 1); len(got) != 1 {
		t.Errorf("QueryByAgent limit: got %d, want 1", len(got))
	}
}

func TestMessageLog_SaveFailureDropsEntry(t *testing.T) {
	t.Parallel()
	st := store.NewMemStore()
	l := NewMessageLog(st, 0)
	ctx := context.Background()
	_, _ = l.Send(ctx, "a", "", "kept", "")

	st.FailSaves = errors.New("disk full")
	if _, err := l.Send(ctx, "a", "", "lost", ""); !IsKind(err, KindSaveFailed) {
		t.Fatalf("Send with failing save: got %v, want save_failed", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len after failed save: got %d, want 1", l.Len())
	}
	if got := l.QueryRecent(1); got[0].Message != "kept" {
		t.Errorf("head after failed save: got %q, want kept", got[0].Message)
	}
}
