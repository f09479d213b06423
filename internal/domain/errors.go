package domain

import "errors"

var (
	ErrIncompleteQuiz   = errors.New("quiz is incomplete")
	ErrInvalidAnswer    = errors.New("invalid quiz answer")
	ErrInvalidMinutes   = errors.New("minutes not in allowed set")
	ErrInvalidArchetype = errors.New("invalid archetype")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownItem       = errors.New("unknown shop item")
	ErrPriceMismatch     = errors.New("price does not match catalog")

	// ErrStaleSession is returned when a completion report arrives for a
	// session that was already credited or is no longer running.
	ErrStaleSession = errors.New("stale session")

	// ErrInvalidTransition names a review decision with no edge from the
	// current archetype. ApplyDecision never returns it; callers that need to
	// reject such input explicitly can.
	ErrInvalidTransition = errors.New("invalid plan transition")

	ErrInvalidState = errors.New("invalid session state")
	ErrNotFound     = errors.New("not found")
	ErrNotOnboarded = errors.New("onboarding not completed")
)
