package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CharterPath returns the path of the agent's charter.md.
func CharterPath(agentDir string) string {
	return filepath.Join(agentDir, "charter.md")
}

// ReadCharter returns the contents of the agent's charter.md, or "" if missing.
func ReadCharter(agentDir string) (string, error) {
	data, err := os.ReadFile(CharterPath(agentDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// WriteCharter writes the agent charter, creating agentDir if needed.
func WriteCharter(agentDir, content string) error {
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(CharterPath(agentDir), []byte(content), 0o644)
}

// RenderCharter builds the charter.md written when an agent is first spawned:
// who the agent is, what it was spawned to do, and the planning context the
// operator recorded.
func RenderCharter(agentName, role, taskTitle, planningContext string, createdAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", agentName)
	fmt.Fprintf(&b, "- **Role:** %s\n", role)
	fmt.Fprintf(&b, "- **Spawned:** %s\n", createdAt.Format("2006-01-02 15:04"))
	if taskTitle != "" {
		fmt.Fprintf(&b, "- **First task:** %s\n", taskTitle)
	}
	if planningContext != "" {
		b.WriteString("\n## Planning context\n\n")
		b.WriteString(planningContext)
		b.WriteString("\n")
	}
	return b.String()
}
