// Package routeguard keeps the current location consistent with the
// session and onboarding state.
package routeguard

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/captionly-dev/captionly/internal/cli/session"
)

// Known locations
const (
	LocationLogin    = "/(auth)/login"
	LocationRegister = "/(auth)/register"
	LocationIntro    = "/intro"
	LocationMain     = "/(tabs)"
)

const (
	authSegment  = "(auth)"
	introSegment = "intro"
)

// Input is everything a routing decision depends on
type Input struct {
	Loading        bool
	Authenticated  bool
	OnboardingDone bool
	Location       string
}

// Decision is the outcome of Decide. Target is only set when Redirect is true.
type Decision struct {
	Redirect bool
	Target   string
}

func stay() Decision { return Decision{} }

func redirect(target string) Decision { return Decision{Redirect: true, Target: target} }

// Decide applies the routing rules. Authentication is checked before onboarding.
func Decide(in Input) Decision {
	if in.Loading {
		return stay()
	}

	inAuth := InAuthArea(in.Location)
	onIntro := OnOnboarding(in.Location)

	switch {
	case !in.Authenticated && !inAuth:
		return redirect(LocationLogin)
	case !in.Authenticated:
		return stay()
	case inAuth:
		return redirect(LocationMain)
	case !in.OnboardingDone && !onIntro:
		return redirect(LocationIntro)
	case in.OnboardingDone && onIntro:
		return redirect(LocationMain)
	default:
		return stay()
	}
}

// InAuthArea reports whether loc is under /(auth)
func InAuthArea(loc string) bool {
	return firstSegment(loc) == authSegment
}

// OnOnboarding reports whether loc is the intro
func OnOnboarding(loc string) bool {
	return firstSegment(loc) == introSegment
}

func firstSegment(loc string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(loc, "/"), "/")
	return seg
}

// Navigator performs a redirect
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) { f(path) }

// SessionSource is the part of session.Manager the guard reads
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
}

// OnboardingReader reports whether the intro has been completed
type OnboardingReader interface {
	Completed(ctx context.Context) (bool, error)
}

// Guard re-evaluates the routing rules on every location or session change
type Guard struct {
	session    SessionSource
	onboarding OnboardingReader
	nav        Navigator
	logger     zerolog.Logger

	mu       sync.Mutex
	location string
}

// Option configures a Guard
type Option func(*Guard)

// WithLogger sets the guard's logger
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// New creates a guard positioned at location
func New(sess SessionSource, onboarding OnboardingReader, nav Navigator, location string, opts ...Option) *Guard {
	g := &Guard{
		session:    sess,
		onboarding: onboarding,
		nav:        nav,
		logger:     zerolog.Nop(),
		location:   location,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Location returns where the guard currently is
func (g *Guard) Location() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.location
}

// SetLocation moves to loc and evaluates
func (g *Guard) SetLocation(ctx context.Context, loc string) Decision {
	g.mu.Lock()
	g.location = loc
	g.mu.Unlock()

	return g.Evaluate(ctx)
}

// Evaluate decides for the current state and redirects when needed
func (g *Guard) Evaluate(ctx context.Context) Decision {
	snap := g.session.Snapshot()

	done, err := g.onboarding.Completed(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Failed to read onboarding flag")
		done = false
	}

	g.mu.Lock()
	decision := Decide(Input{
		Loading:        snap.IsLoading,
		Authenticated:  snap.IsAuthenticated(),
		OnboardingDone: done,
		Location:       g.location,
	})
	from := g.location
	if decision.Redirect {
		g.location = decision.Target
	}
	g.mu.Unlock()

	if decision.Redirect {
		g.logger.Debug().Str("from", from).Str("to", decision.Target).Msg("Redirecting")
		g.nav.Replace(decision.Target)
	}

	return decision
}

// Watch evaluates after every session change until the returned func is called
func (g *Guard) Watch(ctx context.Context) func() {
	return g.session.Subscribe(func(session.Snapshot) {
		g.Evaluate(ctx)
	})
}
