package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/account"
	"github.com/trezcool/ajira/core/profile"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired, please sign in again")
)

const errProfileLoadFailed = "failed to load profile"

// Identity is the immutable token material of an authenticated session.
type Identity struct {
	AccountID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (id Identity) Expired() bool {
	return NowFunc().After(id.ExpiresAt)
}

// EventType mirrors the identity provider's session events.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

type Event struct {
	Type     EventType
	Identity *Identity
}

// State is a snapshot of who is using the app right now. Loading is true
// until the first resolution attempt settles; ProfileErr holds the last
// resolution failure and is cleared on success or sign-out.
type State struct {
	Identity       *Identity
	Profile        *profile.Resolved
	Loading        bool
	ProfileLoading bool
	ProfileErr     error
}

// ProfileResolver is the slice of profile.Resolver the Store needs.
type ProfileResolver interface {
	Resolve(ctx context.Context, accountID string) (profile.Resolved, error)
}

// resolution is a single-slot in-flight task handle: while one resolution is
// running, later triggers join it and receive its result instead of issuing
// a duplicate round-trip.
type resolution struct {
	done chan struct{}
	err  error
}

// Store is the single source of truth for the authenticated session. It is
// an explicit provider object: construct one and pass it down, never a
// package global. All reads and writes go through the internal lock; the
// in-flight handle is the only ordering guarantee between concurrent
// resolution triggers.
type Store struct {
	mu       sync.Mutex
	state    State
	inflight *resolution

	resolver ProfileResolver
	accounts *account.Service
	conf     *core.Config
	logger   core.Logger
}

func NewStore(resolver ProfileResolver, accounts *account.Service, conf *core.Config, logger core.Logger) *Store {
	return &Store{
		state:    State{Loading: true},
		resolver: resolver,
		accounts: accounts,
		conf:     conf,
		logger:   logger,
	}
}

// State returns a snapshot copy of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Identity != nil {
		id := *st.Identity
		st.Identity = &id
	}
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}

// HandleEvent reacts to an identity provider session event. Unknown events
// only clear the initial loading flag.
func (s *Store) HandleEvent(ctx context.Context, evt Event) error {
	switch evt.Type {
	case EventInitialSession:
		return s.handleInitialSession(ctx, evt.Identity)

	case EventSignedIn:
		// SignIn already awaited resolution before the event fired
		s.settleLoading()
		return nil

	case EventTokenRefreshed:
		// token rotation must not cause a redundant re-fetch
		s.settleLoading()
		return nil

	default:
		s.settleLoading()
		return nil
	}
}

func (s *Store) handleInitialSession(ctx context.Context, id *Identity) error {
	s.mu.Lock()
	if !s.state.Loading {
		// duplicate delivery; the first one already settled
		s.mu.Unlock()
		return nil
	}
	if id == nil {
		s.clearLocked()
		s.state.Loading = false
		s.mu.Unlock()
		return nil
	}
	cp := *id
	s.state.Identity = &cp
	s.mu.Unlock()

	err := s.resolve(ctx)
	s.settleLoading()
	return err
}

// resolve fetches the profile for the current identity, at most one
// round-trip at a time. Concurrent callers join the in-flight resolution and
// share its outcome.
func (s *Store) resolve(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Identity == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if fl := s.inflight; fl != nil {
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	fl := &resolution{done: make(chan struct{})}
	s.inflight = fl
	s.state.ProfileLoading = true
	id := *s.state.Identity
	s.mu.Unlock()

	var res profile.Resolved
	var err error
	if id.Expired() {
		err = ErrSessionExpired
	} else if res, err = s.resolver.Resolve(ctx, id.AccountID); err != nil {
		err = classify(err)
	}

	s.mu.Lock()
	s.inflight = nil
	s.state.ProfileLoading = false
	if err == nil {
		p := res
		s.state.Profile = &p
		s.state.ProfileErr = nil
	} else {
		s.state.Profile = nil
		s.state.ProfileErr = err
		if errors.Cause(err) == ErrSessionExpired {
			// fatal to the session: force sign-out, keep the error visible
			s.state.Identity = nil
		}
	}
	s.mu.Unlock()

	fl.err = err
	close(fl.done)
	return err
}

// classify maps resolver failures onto the session error taxonomy.
func classify(err error) error {
	switch errors.Cause(err) {
	case account.ErrNotFound:
		// the identity no longer maps to an account: 401-class
		return ErrSessionExpired
	case profile.ErrAccessDenied, profile.ErrProfileNotFound:
		return err
	default:
		return errors.Wrap(err, errProfileLoadFailed)
	}
}

// SignIn authenticates and resolves the profile before returning, so callers
// may redirect immediately on success. The returned Resolved matches the
// store's populated slot.
func (s *Store) SignIn(ctx context.Context, email, pwd string) (profile.Resolved, error) {
	defer s.settleLoading() // never leave Loading dangling, error or not

	acct, err := s.accounts.Authenticate(email, pwd)
	if err != nil {
		return profile.Resolved{}, err
	}

	now := NowFunc().UTC()
	id := Identity{
		AccountID: acct.ID,
		Email:     acct.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.conf.Server.JWTExpirationDelta),
	}
	s.mu.Lock()
	s.state.Identity = &id
	s.state.Profile = nil
	s.state.ProfileErr = nil
	s.mu.Unlock()

	if err = s.resolve(ctx); err != nil {
		return profile.Resolved{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Profile == nil {
		// signed out between resolution and here
		return profile.Resolved{}, ErrNotAuthenticated
	}
	return *s.state.Profile, nil
}

// SignInWithMagicLink requests a one-time login link after an explicit
// existence pre-flight; a passwordless flow must never create accounts
// silently.
func (s *Store) SignInWithMagicLink(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := s.accounts.Exists(email)
	if err != nil {
		return errors.Wrap(err, "checking account existence")
	}
	if !exists {
		return account.ErrNoAccount
	}
	return s.accounts.RequestMagicLink(email)
}

// SignOut clears the session and returns the marketing-root URL the caller
// must hard-redirect to (a full page load avoids racing route guards against
// freshly cleared state).
func (s *Store) SignOut(ctx context.Context) string {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	return s.conf.FrontendBaseURL
}

func (s *Store) ResetPassword(email string) error {
	return s.accounts.RequestPasswordReset(email)
}

func (s *Store) UpdatePassword(ctx context.Context, newPwd string) error {
	s.mu.Lock()
	id := s.state.Identity
	s.mu.Unlock()
	if id == nil {
		return ErrNotAuthenticated
	}
	return s.accounts.UpdatePassword(id.AccountID, newPwd)
}

func (s *Store) settleLoading() {
	s.mu.Lock()
	s.state.Loading = false
	s.mu.Unlock()
}

func (s *Store) clearLocked() {
	s.state.Identity = nil
	s.state.Profile = nil
	s.state.ProfileErr = nil
}
