package services

import "errors"

// Service-layer error taxonomy. Handlers map these onto HTTP status codes with
// errors.Is; anything not listed here is treated as a store failure and
// propagated so the caller can decide whether to retry.
var (
	// ErrNotAuthenticated is returned when no actor id could be resolved
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidTarget is returned when a swipe target does not resolve to an
	// active listing or user
	ErrInvalidTarget = errors.New("invalid swipe target")

	// ErrTargetNotFound is returned when a referenced listing, user, match or
	// booking does not exist
	ErrTargetNotFound = errors.New("target not found")

	// ErrSelfMatchNotAllowed is returned when actor and counterpart are the
	// same user
	ErrSelfMatchNotAllowed = errors.New("cannot match with yourself")

	// ErrProposalNotFound is returned when accept/decline references a message
	// with no parseable proposal metadata
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrInvalidTransition is returned when a lifecycle transition is not
	// permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrIncompleteNegotiation is returned when a booking is requested before
	// the negotiation produced the required terms
	ErrIncompleteNegotiation = errors.New("negotiation has not produced final terms")

	// ErrAccessDenied is returned when the actor is not a participant of the
	// match or booking being operated on
	ErrAccessDenied = errors.New("access denied")
)
