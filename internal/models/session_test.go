package models

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to SessionStatus
		want     bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusCancelled, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusFailed, true},
		{StatusActive, StatusPending, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusCancelled, StatusActive, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransition(tc.to); got != tc.want {
				t.Errorf("CanTransition() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	for _, s := range []SessionStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []SessionStatus{StatusPending, StatusActive} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if SessionStatus("paused").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestSessionPatchEmpty(t *testing.T) {
	if !(SessionPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	title := "x"
	if (SessionPatch{Title: &title}).Empty() {
		t.Error("patch with title should not be empty")
	}
}
