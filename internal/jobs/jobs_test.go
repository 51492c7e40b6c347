package jobs

import (
	"testing"
	"time"
)

func TestJob_Status(t *testing.T) {
	tests := []struct {
		state string
		want  Status
	}{
		{stateQueued, StatusPending},
		{stateDelayed, StatusPending},
		{stateActive, StatusProcessing},
		{stateCompleted, StatusCompleted},
		{stateFailed, StatusFailed},
		{"", StatusPending},
		{"something-new", StatusPending},
	}

	for _, tt := range tests {
		j := &Job{State: tt.state}
		if got := j.Status(); got != tt.want {
			t.Errorf("state %q: expected status %q, got %q", tt.state, tt.want, got)
		}
	}
}

func TestJob_Terminal(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{stateQueued, false},
		{stateDelayed, false},
		{stateActive, false},
		{stateCompleted, true},
		{stateFailed, true},
	}

	for _, tt := range tests {
		j := &Job{State: tt.state}
		if got := j.Terminal(); got != tt.want {
			t.Errorf("state %q: expected terminal=%v, got %v", tt.state, tt.want, got)
		}
	}
}

func TestBackoffDelay_Exponential(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, Backoff: 5 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, 5 * time.Second},
		{3, 10 * time.Second},
		{4, 20 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(policy, tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestBackoffDelay_ZeroBackoffUsesDefault(t *testing.T) {
	got := backoffDelay(RetryPolicy{MaxAttempts: 3}, 2)
	if got != DefaultRetryPolicy.Backoff {
		t.Errorf("expected default backoff %v, got %v", DefaultRetryPolicy.Backoff, got)
	}
}
