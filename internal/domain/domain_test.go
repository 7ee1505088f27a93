package domain

import "testing"

func TestJobTransitions(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobUnassigned, JobAssigned},
		{JobAssigned, JobAccepted},
		{JobAssigned, JobAssigned},
		{JobAccepted, JobComplete},
		{JobAwaitingPayment, JobPaidUnassigned},
		{JobAccepted, JobCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	blocked := []struct{ from, to JobStatus }{
		{JobComplete, JobCancelled},
		{JobCancelled, JobAssigned},
		{JobUnassigned, JobAccepted},
		{JobAssigned, JobComplete},
		{JobAwaitingPayment, JobUnassigned},
	}
	for _, tc := range blocked {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be blocked", tc.from, tc.to)
		}
	}
}

func TestEveryNonTerminalStatusCanBeCancelled(t *testing.T) {
	for _, status := range []JobStatus{JobAwaitingPayment, JobUnassigned, JobPaidUnassigned, JobAssigned, JobAccepted} {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
		if !CanTransition(status, JobCancelled) {
			t.Fatalf("expected %s -> cancelled", status)
		}
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"plumbing":     CategoryPlumbing,
		" Electrical.": CategoryElectrical,
		"\"general\"":  CategoryGeneral,
	}
	for input, want := range cases {
		got, ok := ParseCategory(input)
		if !ok || got != want {
			t.Fatalf("ParseCategory(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseCategory("carpentry"); ok {
		t.Fatalf("expected unknown label to be rejected")
	}
}

func TestFixerEligibility(t *testing.T) {
	f := Fixer{IsActive: true, VettingStatus: VettingApproved}
	if !f.IsEligible() {
		t.Fatalf("active approved fixer should be eligible")
	}
	f.VettingStatus = VettingPendingReview
	if f.IsEligible() {
		t.Fatalf("pending fixer should not be eligible")
	}
}
