package mission

import "strings"

// roleKeywords maps keyword groups to a role, checked in fixed priority order;
// the first group with a hit wins.
var roleKeywords = []struct {
	role     string
	keywords []string
}{
	{"Researcher", []string{"research", "find", "investigate", "analyze", "explore"}},
	{"Developer", []string{"code", "develop", "implement", "build", "fix", "refactor"}},
	{"Writer", []string{"write", "draft", "document", "summarize", "blog"}},
	{"Designer", []string{"design", "mockup", "wireframe", "ui", "ux"}},
	{"Tester", []string{"test", "verify", "validate", "qa"}},
}

// DefaultRole is used when no keyword group matches the task description.
const DefaultRole = "Generalist"

// InferRole derives a worker role from a task description by keyword matching.
// Deterministic: groups are checked in priority order, first match wins.
func InferRole(description string) string {
	d := strings.ToLower(description)
	for _, g := range roleKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(d, kw) {
				return g.role
			}
		}
	}
	return DefaultRole
}
