package testutil

import "testing"

// Given, When and Then name nested subtests after the scenario step they
// cover, so a failing step reads as a sentence in the test output.
func Given(t *testing.T, state string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", state, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", outcome, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(keyword+" "+desc, fn) {
		t.Logf("%s step failed: %s", keyword, desc)
	}
}
