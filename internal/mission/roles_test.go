package mission

import "testing"

func TestInferRole(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc string
		want string
	}{
		{"research the market for widgets", "Researcher"},
		{"implement the login endpoint", "Developer"},
		{"write a blog post about the launch", "Writer"},
		{"design a wireframe for onboarding", "Designer"},
		{"verify the release candidate", "Tester"},
		{"something entirely unrelated", "Generalist"},
		{"", "Generalist"},
		// "investigate" (Researcher) outranks "fix" (Developer): priority order.
		{"investigate and fix the crash", "Researcher"},
		// Matching is case-insensitive.
		{"RESEARCH the options", "Researcher"},
	}
	for _, c := range cases {
		if got := InferRole(c.desc); got != c.want {
			t.Errorf("InferRole(%q): got %q, want %q", c.desc, got, c.want)
		}
	}
}
