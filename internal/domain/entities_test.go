package domain_test

import (
	"testing"

	"github.com/perclft/qpilot/internal/domain"
)

func TestJobStateTerminal(t *testing.T) {
	terminal := []domain.JobState{domain.JobFinished, domain.JobError, domain.JobCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []domain.JobState{domain.JobReady, domain.JobRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestJobStateCanTransitionTo(t *testing.T) {
	cases := []struct {
		from domain.JobState
		to   domain.JobState
		want bool
	}{
		{domain.JobReady, domain.JobRunning, true},
		{domain.JobReady, domain.JobCanceled, true},
		{domain.JobReady, domain.JobFinished, false},
		{domain.JobRunning, domain.JobFinished, true},
		{domain.JobRunning, domain.JobError, true},
		{domain.JobRunning, domain.JobCanceled, true},
		{domain.JobRunning, domain.JobReady, false},
		{domain.JobFinished, domain.JobRunning, false},
		{domain.JobError, domain.JobReady, false},
		{domain.JobCanceled, domain.JobRunning, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestJobVisibleTo(t *testing.T) {
	owned := &domain.Job{Owner: domain.UserID("alice")}
	if !owned.VisibleTo("alice") {
		t.Error("owner should see their own job")
	}
	if owned.VisibleTo("bob") {
		t.Error("non-owner should not see an owned job")
	}

	public := &domain.Job{Owner: domain.NullOwner}
	if !public.VisibleTo("anyone") {
		t.Error("null-owner job should be visible to everyone")
	}
}
