// Package memory manages per-agent files under the missionctl home: a yaml
// config with model defaults and a markdown journal of completed work.
package memory

import "path/filepath"

// AgentsDir returns the directory holding all agent subdirectories.
func AgentsDir(home string) string {
	return filepath.Join(home, "agents")
}

// AgentDir returns the directory for one agent, keyed by name.
func AgentDir(home, agentName string) string {
	return filepath.Join(AgentsDir(home), agentName)
}

// AgentConfigPath returns the path of the agent's config.yaml.
func AgentConfigPath(agentDir string) string {
	return filepath.Join(agentDir, "config.yaml")
}

// JournalPath returns the path of the agent's journal.md.
func JournalPath(agentDir string) string {
	return filepath.Join(agentDir, "journal.md")
}
