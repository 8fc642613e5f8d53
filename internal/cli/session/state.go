package session

import (
	"strings"

	"github.com/captionly-dev/captionly/internal/cli/api"
)

// State tags how much the client trusts the current identity
type State int

const (
	// Unauthenticated means no user is held
	Unauthenticated State = iota
	// Authenticated means the user came from the backend
	Authenticated
	// AuthenticatedDegraded means a token was issued but the user record is a local placeholder
	AuthenticatedDegraded
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case AuthenticatedDegraded:
		return "authenticated (degraded)"
	default:
		return "unauthenticated"
	}
}

// PlaceholderIDPrefix marks ids synthesized on the client
const PlaceholderIDPrefix = "local-"

// IsPlaceholder reports whether u was synthesized rather than returned by the backend
func IsPlaceholder(u api.User) bool {
	return strings.HasPrefix(string(u.ID), PlaceholderIDPrefix)
}

// Snapshot is a point-in-time copy of the session
type Snapshot struct {
	User      *api.User
	IsLoading bool
	State     State
}

// IsAuthenticated is true iff a user is held
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// IsDegraded is true when the held user is a placeholder
func (s Snapshot) IsDegraded() bool {
	return s.State == AuthenticatedDegraded
}
