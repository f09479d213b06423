package domain

import "fmt"

type Archetype string

const (
	ArchetypeA Archetype = "A"
	ArchetypeB Archetype = "B"
	ArchetypeC Archetype = "C"

	// DefaultArchetype applies to users who have not finished onboarding.
	DefaultArchetype = ArchetypeB
)

const (
	ScoredQuestions = 5
	MaxAnswerPoints = 2
	MaxQuizScore    = ScoredQuestions * MaxAnswerPoints
	thresholdAUpper = 4
	thresholdBUpper = 7
	debugMinutes    = 1
	shortMinutes    = 15
	mediumMinutes   = 25
	longMinutes     = 40
)

// SelectableMinutes is the timer selector; 1 is kept for quick test runs.
var SelectableMinutes = []int{debugMinutes, shortMinutes, mediumMinutes, longMinutes}

// PreferenceMinutes are the answers to the onboarding preference question.
var PreferenceMinutes = []int{shortMinutes, mediumMinutes, longMinutes}

func ParseArchetype(s string) (Archetype, error) {
	switch a := Archetype(s); a {
	case ArchetypeA, ArchetypeB, ArchetypeC:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidArchetype, s)
}

func (a Archetype) Valid() bool {
	_, err := ParseArchetype(string(a))
	return err == nil
}

// DefaultMinutes is the session length an archetype starts with. Unknown or
// empty archetypes get the fallback archetype's length.
func DefaultMinutes(a Archetype) int {
	switch a {
	case ArchetypeA:
		return shortMinutes
	case ArchetypeC:
		return longMinutes
	default:
		return mediumMinutes
	}
}

// ArchetypeForScore maps a quiz score to an archetype.
func ArchetypeForScore(score int) Archetype {
	switch {
	case score <= thresholdAUpper:
		return ArchetypeA
	case score <= thresholdBUpper:
		return ArchetypeB
	default:
		return ArchetypeC
	}
}

func IsSelectableMinutes(m int) bool {
	return contains(SelectableMinutes, m)
}

func IsPreferenceMinutes(m int) bool {
	return contains(PreferenceMinutes, m)
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type ScoredAnswer struct {
	QuestionIndex int `json:"question_index"`
	Points        int `json:"points"`
}

type Classification struct {
	Archetype        Archetype `json:"archetype"`
	Score            int       `json:"score"`
	PreferredMinutes int       `json:"preferred_minutes"`
	StatedPreference int       `json:"stated_preference_minutes"`
}

// MinutesPolicy decides the plan length from the scored archetype and the
// user's stated preference.
type MinutesPolicy func(a Archetype, statedMinutes int) int

// IgnorePreference keeps the archetype default whatever the user asked for.
func IgnorePreference(a Archetype, _ int) int {
	return DefaultMinutes(a)
}

// Classifier turns quiz answers into an archetype.
type Classifier struct {
	Policy MinutesPolicy
}

func NewClassifier() *Classifier {
	return &Classifier{Policy: IgnorePreference}
}

// Classify sums the scored answers and applies the archetype thresholds.
// Every one of the scored questions must be answered exactly once; a repeated
// question leaves another unanswered and counts as incomplete.
func (c *Classifier) Classify(answers []ScoredAnswer, preferredMinutes int) (Classification, error) {
	if len(answers) < ScoredQuestions {
		return Classification{}, fmt.Errorf("%w: %d of %d questions answered", ErrIncompleteQuiz, len(answers), ScoredQuestions)
	}
	if len(answers) > ScoredQuestions {
		return Classification{}, fmt.Errorf("%w: %d answers for %d questions", ErrInvalidAnswer, len(answers), ScoredQuestions)
	}
	if !IsPreferenceMinutes(preferredMinutes) {
		return Classification{}, fmt.Errorf("%w: preference %d", ErrInvalidMinutes, preferredMinutes)
	}

	var seen [ScoredQuestions]bool
	score := 0
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= ScoredQuestions {
			return Classification{}, fmt.Errorf("%w: question index %d", ErrInvalidAnswer, a.QuestionIndex)
		}
		if seen[a.QuestionIndex] {
			return Classification{}, fmt.Errorf("%w: question %d answered twice", ErrIncompleteQuiz, a.QuestionIndex)
		}
		if a.Points < 0 || a.Points > MaxAnswerPoints {
			return Classification{}, fmt.Errorf("%w: %d points", ErrInvalidAnswer, a.Points)
		}
		seen[a.QuestionIndex] = true
		score += a.Points
	}

	archetype := ArchetypeForScore(score)
	policy := c.Policy
	if policy == nil {
		policy = IgnorePreference
	}

	return Classification{
		Archetype:        archetype,
		Score:            score,
		PreferredMinutes: policy(archetype, preferredMinutes),
		StatedPreference: preferredMinutes,
	}, nil
}

// AnswersFromPoints builds answers in question order, as the quiz asks them.
func AnswersFromPoints(points ...int) []ScoredAnswer {
	answers := make([]ScoredAnswer, len(points))
	for i, p := range points {
		answers[i] = ScoredAnswer{QuestionIndex: i, Points: p}
	}
	return answers
}
