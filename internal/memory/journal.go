package memory

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// JournalEntry represents one entry appended to an agent's journal.
type JournalEntry struct {
	TaskID    string
	TaskTitle string
	Outcome   string
	CreatedAt time.Time
}

// Journal manages an agent's journal.md file: completed tasks are appended in
// markdown form so a human can audit what the agent worked on.
type Journal struct {
	AgentName string
	Home      string
}

// Append adds an entry to the agent's journal, creating the agent directory
// and journal file if they do not exist.
func (j *Journal) Append(entry JournalEntry) error {
	agentDir := AgentDir(j.Home, j.AgentName)
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		return fmt.Errorf("create agent dir: %w", err)
	}
	f, err := os.OpenFile(JournalPath(agentDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(formatJournalBlock(entry)); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func formatJournalBlock(e JournalEntry) string {
	var b strings.Builder
	b.WriteString("\n---\n\n")
	b.WriteString("## ")
	b.WriteString(e.CreatedAt.Format("2006-01-02 15:04"))
	if e.TaskTitle != "" {
		b.WriteString(" - ")
		b.WriteString(e.TaskTitle)
	}
	b.WriteString("\n\n")
	if e.TaskID != "" {
		b.WriteString("- **Task:** ")
		b.WriteString(e.TaskID)
		b.WriteString("\n")
	}
	if e.Outcome != "" {
		b.WriteString("- **Outcome:** ")
		b.WriteString(e.Outcome)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Read returns the journal content, or "" if none exists yet. limitBytes > 0
// returns at most that much of the file tail.
func (j *Journal) Read(limitBytes int) (string, error) {
	path := JournalPath(AgentDir(j.Home, j.AgentName))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	s := string(data)
	if limitBytes <= 0 || len(s) <= limitBytes {
		return s, nil
	}
	return s[len(s)-limitBytes:], nil
}
