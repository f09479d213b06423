package domain

import (
	"fmt"
	"time"
)

type Decision string

const (
	DecisionDown   Decision = "down"
	DecisionSame   Decision = "same"
	DecisionUp     Decision = "up"
	DecisionUpMore Decision = "upMore"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionDown, DecisionSame, DecisionUp, DecisionUpMore:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, s)
}

// Plan is the archetype and session length a user currently studies with.
type Plan struct {
	Archetype Archetype `json:"archetype"`
	Minutes   int       `json:"minutes"`
}

func PlanFor(a Archetype) Plan {
	return Plan{Archetype: a, Minutes: DefaultMinutes(a)}
}

var transitions = map[Archetype]map[Decision]Archetype{
	ArchetypeA: {DecisionSame: ArchetypeA, DecisionUp: ArchetypeB, DecisionUpMore: ArchetypeC},
	ArchetypeB: {DecisionDown: ArchetypeA, DecisionSame: ArchetypeB, DecisionUp: ArchetypeC},
	ArchetypeC: {DecisionDown: ArchetypeB, DecisionSame: ArchetypeC},
}

type Option struct {
	Decision Decision `json:"decision"`
	Plan     Plan     `json:"plan"`
}

var decisionOrder = []Decision{DecisionDown, DecisionSame, DecisionUp, DecisionUpMore}

// Options lists the decisions offered for an archetype, in display order.
func Options(a Archetype) []Option {
	edges := transitions[a]
	out := make([]Option, 0, len(edges))
	for _, d := range decisionOrder {
		if next, ok := edges[d]; ok {
			out = append(out, Option{Decision: d, Plan: PlanFor(next)})
		}
	}
	return out
}

// ApplyDecision looks the decision up in the transition table. A decision with
// no edge from the current archetype leaves the plan untouched and reports
// false.
func ApplyDecision(current Plan, d Decision) (Plan, bool) {
	next, ok := transitions[current.Archetype][d]
	if !ok {
		return current, false
	}
	if d == DecisionSame {
		return current, true
	}
	return PlanFor(next), true
}

// ValidatePlan accepts only plans whose minutes match the archetype.
func ValidatePlan(p Plan) error {
	if !p.Archetype.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidArchetype, p.Archetype)
	}
	if p.Minutes != DefaultMinutes(p.Archetype) {
		return fmt.Errorf("%w: %d minutes for archetype %s", ErrInvalidMinutes, p.Minutes, p.Archetype)
	}
	return nil
}

const (
	ReviewGracePeriod = 3 * 24 * time.Hour
	ReviewInterval    = 7 * 24 * time.Hour
)

// ReviewDue reports whether a weekly review should be offered. Fresh accounts
// get a grace period before the first one.
func ReviewDue(createdAt time.Time, lastReview *time.Time, now time.Time) bool {
	if lastReview == nil {
		return now.Sub(createdAt) >= ReviewGracePeriod
	}
	return now.Sub(*lastReview) >= ReviewInterval
}
