package memory

import (
	"strings"
	"testing"
	"time"
)

func TestJournalAppendAndRead(t *testing.T) {
	t.Parallel()
	j := &Journal{AgentName: "dev-1", Home: t.TempDir()}

	got, err := j.Read(0)
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if got != "" {
		t.Errorf("Read empty: got %q", got)
	}

	when := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := j.Append(JournalEntry{TaskID: "t1", TaskTitle: "fix login", Outcome: "completed", CreatedAt: when}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Append(JournalEntry{TaskID: "t2", TaskTitle: "write docs", Outcome: "completed", CreatedAt: when.Add(time.Hour)}); err != nil {
		t.Fatalf("Append second: %v", err)
	}

	got, err = j.Read(0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.Contains(got, "2026-03-14 09:30 - fix login") {
		t.Errorf("first entry heading missing:\n%s", got)
	}
	if !strings.Contains(got, "**Task:** t2") || !strings.Contains(got, "**Outcome:** completed") {
		t.Errorf("second entry fields missing:\n%s", got)
	}

	tail, err := j.Read(20)
	if err != nil {
		t.Fatalf("Read with limit: %v", err)
	}
	if len(tail) != 20 || !strings.HasSuffix(got, tail) {
		t.Errorf("limit should return the file tail, got %q", tail)
	}
}

func TestCharterWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	agentDir := AgentDir(t.TempDir(), "researcher-1")

	got, err := ReadCharter(agentDir)
	if err != nil {
		t.Fatalf("ReadCharter missing: %v", err)
	}
	if got != "" {
		t.Errorf("ReadCharter missing: got %q", got)
	}

	content := RenderCharter("researcher-1", "Researcher", "market study", "Q: goal?\nA: learn", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	if err := WriteCharter(agentDir, content); err != nil {
		t.Fatalf("WriteCharter: %v", err)
	}
	got, err = ReadCharter(agentDir)
	if err != nil {
		t.Fatalf("ReadCharter: %v", err)
	}
	if got != content {
		t.Errorf("ReadCharter: got %q, want %q", got, content)
	}
}

func TestRenderCharterSections(t *testing.T) {
	t.Parallel()
	when := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	full := RenderCharter("dev-1", "Developer", "fix login", "context", when)
	for _, want := range []string{"# dev-1", "**Role:** Developer", "**Spawned:** 2026-03-14 09:30", "**First task:** fix login", "## Planning context"} {
		if !strings.Contains(full, want) {
			t.Errorf("charter missing %q:\n%s", want, full)
		}
	}

	bare := RenderCharter("dev-2", "Generalist", "", "", when)
	if strings.Contains(bare, "First task") || strings.Contains(bare, "Planning context") {
		t.Errorf("bare charter has optional sections:\n%s", bare)
	}
}

func TestAgentConfigRoundTrip(t *testing.T) {
	t.Parallel()
	agentDir := AgentDir(t.TempDir(), "dev-1")

	cfg, err := LoadAgentConfig(agentDir)
	if err != nil {
		t.Fatalf("LoadAgentConfig missing: %v", err)
	}
	if cfg != nil {
		t.Errorf("LoadAgentConfig missing: got %+v", cfg)
	}

	if err := SaveAgentConfig(agentDir, &AgentConfig{Model: "m1", MaxTokens: 4096}); err != nil {
		t.Fatalf("SaveAgentConfig: %v", err)
	}
	cfg, err = LoadAgentConfig(agentDir)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg == nil || cfg.Model != "m1" || cfg.MaxTokens != 4096 {
		t.Errorf("LoadAgentConfig: got %+v", cfg)
	}
}
