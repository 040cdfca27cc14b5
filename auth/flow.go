package auth

import (
	"fmt"

	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
)

// FlowState is where a session is in the login lifecycle.
type FlowState int

const (
	StateAnonymous FlowState = iota
	StateAwaitingCallback
	StateAuthenticated
)

func (s FlowState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("FlowState(%d)", int(s))
}

func (s FlowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FlowEvent is something that happened to a session's credentials.
type FlowEvent int

const (
	// EventRefreshSucceeded is a silent login from a stored refresh token.
	EventRefreshSucceeded FlowEvent = iota
	// EventRefreshUnavailable means login had to send the user to consent.
	EventRefreshUnavailable
	EventCodeExchanged
	EventLoggedOut
	// EventRefreshFailed is an authenticated session losing its credentials.
	EventRefreshFailed
)

func (e FlowEvent) String() string {
	switch e {
	case EventRefreshSucceeded:
		return "refresh_succeeded"
	case EventRefreshUnavailable:
		return "refresh_unavailable"
	case EventCodeExchanged:
		return "code_exchanged"
	case EventLoggedOut:
		return "logged_out"
	case EventRefreshFailed:
		return "refresh_failed"
	}
	return fmt.Sprintf("FlowEvent(%d)", int(e))
}

type transitionKey struct {
	from  FlowState
	event FlowEvent
}

var transitions = map[transitionKey]FlowState{
	{StateAnonymous, EventRefreshSucceeded}:          StateAuthenticated,
	{StateAnonymous, EventRefreshUnavailable}:        StateAwaitingCallback,
	{StateAwaitingCallback, EventRefreshUnavailable}: StateAwaitingCallback,
	{StateAwaitingCallback, EventCodeExchanged}:      StateAuthenticated,
	{StateAwaitingCallback, EventLoggedOut}:          StateAnonymous,
	{StateAuthenticated, EventRefreshSucceeded}:      StateAuthenticated,
	{StateAuthenticated, EventRefreshUnavailable}:    StateAwaitingCallback,
	{StateAwaitingCallback, EventRefreshSucceeded}:   StateAuthenticated,
	{StateAuthenticated, EventCodeExchanged}:         StateAuthenticated,
	{StateAuthenticated, EventRefreshFailed}:         StateAnonymous,
	{StateAuthenticated, EventLoggedOut}:             StateAnonymous,
	{StateAnonymous, EventLoggedOut}:                 StateAnonymous,
}

// Transition returns the state that follows event in state from. It has no
// side effects.
func Transition(from FlowState, event FlowEvent) (FlowState, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, apperrors.Wrapf(apperrors.ErrInvalidTransition, "%s on %s", event, from)
	}
	return to, nil
}
