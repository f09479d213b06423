package domain

import (
	"testing"
	"time"
)

func TestApplyDecisionTable(t *testing.T) {
	tests := []struct {
		from     Archetype
		decision Decision
		want     Plan
		applied  bool
	}{
		{ArchetypeA, DecisionDown, Plan{ArchetypeA, 15}, false},
		{ArchetypeA, DecisionSame, Plan{ArchetypeA, 15}, true},
		{ArchetypeA, DecisionUp, Plan{ArchetypeB, 25}, true},
		{ArchetypeA, DecisionUpMore, Plan{ArchetypeC, 40}, true},
		{ArchetypeB, DecisionDown, Plan{ArchetypeA, 15}, true},
		{ArchetypeB, DecisionSame, Plan{ArchetypeB, 25}, true},
		{ArchetypeB, DecisionUp, Plan{ArchetypeC, 40}, true},
		{ArchetypeB, DecisionUpMore, Plan{ArchetypeB, 25}, false},
		{ArchetypeC, DecisionDown, Plan{ArchetypeB, 25}, true},
		{ArchetypeC, DecisionSame, Plan{ArchetypeC, 40}, true},
		{ArchetypeC, DecisionUp, Plan{ArchetypeC, 40}, false},
		{ArchetypeC, DecisionUpMore, Plan{ArchetypeC, 40}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.decision), func(t *testing.T) {
			got, applied := ApplyDecision(PlanFor(tt.from), tt.decision)
			if got != tt.want || applied != tt.applied {
				t.Fatalf("ApplyDecision(%s, %s) = %+v, %v; want %+v, %v",
					tt.from, tt.decision, got, applied, tt.want, tt.applied)
			}
		})
	}
}

func TestApplyDecisionUnknownDecisionIsNoop(t *testing.T) {
	current := PlanFor(ArchetypeB)
	got, applied := ApplyDecision(current, Decision("sideways"))
	if applied || got != current {
		t.Fatalf("got %+v applied=%v, want unchanged", got, applied)
	}
}

func TestOptionsOrder(t *testing.T) {
	opts := Options(ArchetypeB)
	want := []Decision{DecisionDown, DecisionSame, DecisionUp}
	if len(opts) != len(want) {
		t.Fatalf("got %d options, want %d", len(opts), len(want))
	}
	for i, o := range opts {
		if o.Decision != want[i] {
			t.Errorf("option %d = %s, want %s", i, o.Decision, want[i])
		}
	}
}

func TestValidatePlan(t *testing.T) {
	if err := ValidatePlan(Plan{ArchetypeC, 40}); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if err := ValidatePlan(Plan{ArchetypeC, 25}); err == nil {
		t.Fatalf("mismatched minutes accepted")
	}
	if err := ValidatePlan(Plan{"D", 25}); err == nil {
		t.Fatalf("unknown archetype accepted")
	}
}

func TestReviewDue(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reviewed := created.Add(10 * 24 * time.Hour)

	tests := []struct {
		name string
		last *time.Time
		now  time.Time
		want bool
	}{
		{"new account", nil, created.Add(2 * 24 * time.Hour), false},
		{"grace period over", nil, created.Add(3 * 24 * time.Hour), true},
		{"reviewed recently", &reviewed, reviewed.Add(6 * 24 * time.Hour), false},
		{"a week since review", &reviewed, reviewed.Add(7 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReviewDue(created, tt.last, tt.now); got != tt.want {
				t.Fatalf("ReviewDue = %v, want %v", got, tt.want)
			}
		})
	}
}
