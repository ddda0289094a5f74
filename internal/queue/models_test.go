package queue

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"pending", StatusPending, true},
		{"  Processing ", StatusProcessing, true},
		{"RESTORING", StatusRestoring, true},
		{"completed", StatusCompleted, true},
		{"error", StatusError, true},
		{"failed", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	keep := true
	job := NewJob("/docs/a.pdf")
	job.AdditionalSources = []string{"/docs/b.pdf"}
	job.DeleteRemoteArtifact = &keep

	cp := job.Clone()
	cp.AdditionalSources[0] = "/docs/mutated.pdf"
	*cp.DeleteRemoteArtifact = false

	if job.AdditionalSources[0] != "/docs/b.pdf" {
		t.Fatal("clone shares additional sources slice")
	}
	if !*job.DeleteRemoteArtifact {
		t.Fatal("clone shares delete flag pointer")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusProcessing, StatusRestoring} {
		if IsTerminalStatus(status) {
			t.Errorf("%s should not be terminal", status)
		}
	}
	for _, status := range []Status{StatusCompleted, StatusError} {
		if !IsTerminalStatus(status) {
			t.Errorf("%s should be terminal", status)
		}
	}
}
