package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/account"
	"github.com/trezcool/ajira/core/profile"
	"github.com/trezcool/ajira/core/session"
	appfs "github.com/trezcool/ajira/fs"
	emailsvc "github.com/trezcool/ajira/services/email"
	inmemdb "github.com/trezcool/ajira/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// mockResolver counts round-trips and can be gated to keep a resolution
// in flight while concurrent triggers pile up.
type mockResolver struct {
	calls int32
	gate  chan struct{} // optional; Resolve blocks on it when set
	res   profile.Resolved
	err   error
}

func (m *mockResolver) Resolve(ctx context.Context, accountID string) (profile.Resolved, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return profile.Resolved{}, ctx.Err()
		}
	}
	return m.res, m.err
}

func (m *mockResolver) callCount() int32 { return atomic.LoadInt32(&m.calls) }

type fixture struct {
	store    *session.Store
	resolver *mockResolver
	acctSvc  *account.Service
	acctRepo account.Repository
	conf     *core.Config
}

func setup(t *testing.T, resolver *mockResolver) *fixture {
	t.Helper()

	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, nopLogger{}, true /* strict */)
	emailsvc.ClearSentMessages()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	acctRepo := inmemdb.NewAccountRepository(db)
	acctSvc := account.NewService(acctRepo, emailsvc.NewConsoleServiceMock(conf), conf)

	return &fixture{
		store:    session.NewStore(resolver, acctSvc, conf, nopLogger{}),
		resolver: resolver,
		acctSvc:  acctSvc,
		acctRepo: acctRepo,
		conf:     conf,
	}
}

func (f *fixture) createAccount(t *testing.T, email, pwd string) account.Account {
	t.Helper()

	acct := account.Account{
		ID:          "acct-" + email,
		Email:       email,
		IsActive:    true,
		ConfirmedAt: time.Now().UTC(),
	}
	require.NoError(t, acct.SetPassword(pwd))
	acct, err := f.acctRepo.CreateAccount(acct)
	require.NoError(t, err)
	return acct
}

func identityFor(acct account.Account, expiresIn time.Duration) *session.Identity {
	now := time.Now().UTC()
	return &session.Identity{
		AccountID: acct.ID,
		Email:     acct.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestStore_initialState(t *testing.T) {
	f := setup(t, &mockResolver{})

	st := f.store.State()
	assert.True(t, st.Loading)
	assert.False(t, st.ProfileLoading)
	assert.Nil(t, st.Identity)
	assert.Nil(t, st.Profile)
	assert.NoError(t, st.ProfileErr)
}

func TestStore_HandleEvent_initialSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no identity settles to anonymous", func(t *testing.T) {
		f := setup(t, &mockResolver{})

		err := f.store.HandleEvent(ctx, session.Event{Type: session.EventInitialSession})
		require.NoError(t, err)

		st := f.store.State()
		assert.False(t, st.Loading)
		assert.Nil(t, st.Identity)
		assert.Nil(t, st.Profile)
		assert.Zero(t, f.resolver.callCount())
	})

	t.Run("identity resolves the profile", func(t *testing.T) {
		resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1", AccountID: "acct-1"})}
		f := setup(t, resolver)
		acct := f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		err := f.store.HandleEvent(ctx, session.Event{
			Type:     session.EventInitialSession,
			Identity: identityFor(acct, time.Hour),
		})
		require.NoError(t, err)

		st := f.store.State()
		assert.False(t, st.Loading)
		require.NotNil(t, st.Profile)
		assert.Equal(t, profile.KindTeacher, st.Profile.Kind())
		assert.Equal(t, int32(1), resolver.callCount())
	})

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1"})}
		f := setup(t, resolver)
		acct := f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		evt := session.Event{Type: session.EventInitialSession, Identity: identityFor(acct, time.Hour)}
		require.NoError(t, f.store.HandleEvent(ctx, evt))
		require.NoError(t, f.store.HandleEvent(ctx, evt))

		assert.Equal(t, int32(1), resolver.callCount())
	})

	t.Run("expired identity forces sign-out", func(t *testing.T) {
		f := setup(t, &mockResolver{})
		acct := f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		err := f.store.HandleEvent(ctx, session.Event{
			Type:     session.EventInitialSession,
			Identity: identityFor(acct, -time.Minute),
		})
		assert.Equal(t, session.ErrSessionExpired, errors.Cause(err))

		st := f.store.State()
		assert.Nil(t, st.Identity)
		assert.Nil(t, st.Profile)
		assert.Equal(t, session.ErrSessionExpired, errors.Cause(st.ProfileErr))
		assert.Zero(t, f.resolver.callCount())
	})
}

func TestStore_HandleEvent_refreshDoesNotRefetch(t *testing.T) {
	ctx := context.Background()
	resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1"})}
	f := setup(t, resolver)
	acct := f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

	require.NoError(t, f.store.HandleEvent(ctx, session.Event{
		Type:     session.EventInitialSession,
		Identity: identityFor(acct, time.Hour),
	}))
	require.Equal(t, int32(1), resolver.callCount())

	require.NoError(t, f.store.HandleEvent(ctx, session.Event{Type: session.EventTokenRefreshed}))
	require.NoError(t, f.store.HandleEvent(ctx, session.Event{Type: session.EventSignedIn}))

	// token rotation must not cause redundant round-trips
	assert.Equal(t, int32(1), resolver.callCount())
}

func TestStore_concurrentTriggersShareOneResolution(t *testing.T) {
	ctx := context.Background()
	resolver := &mockResolver{
		gate: make(chan struct{}),
		res:  profile.ResolvedTeacher(profile.Teacher{ID: "t1"}),
	}
	f := setup(t, resolver)
	acct := f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

	evt := session.Event{Type: session.EventInitialSession, Identity: identityFor(acct, time.Hour)}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.store.HandleEvent(ctx, evt)
		}(i)
	}

	// let the stragglers queue up behind the in-flight resolution
	time.Sleep(50 * time.Millisecond)
	close(resolver.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), resolver.callCount())

	st := f.store.State()
	require.NotNil(t, st.Profile)
	assert.False(t, st.ProfileLoading)
}

func TestStore_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1", AccountID: "acct-jane@test.cd"})}
		f := setup(t, resolver)
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		res, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
		require.NoError(t, err)
		assert.Equal(t, profile.KindTeacher, res.Kind())

		// the store settled before SignIn returned
		st := f.store.State()
		assert.False(t, st.Loading)
		assert.False(t, st.ProfileLoading)
		require.NotNil(t, st.Identity)
		assert.Equal(t, "jane@test.cd", st.Identity.Email)
		require.NotNil(t, st.Profile)
		assert.Equal(t, int32(1), resolver.callCount())
	})

	t.Run("bad credentials leave the store anonymous", func(t *testing.T) {
		f := setup(t, &mockResolver{})
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		_, err := f.store.SignIn(ctx, "jane@test.cd", "nope")
		assert.Equal(t, account.ErrInvalidCredentials, errors.Cause(err))

		st := f.store.State()
		assert.False(t, st.Loading)
		assert.Nil(t, st.Identity)
		assert.Zero(t, f.resolver.callCount())
	})

	t.Run("incomplete signup keeps the identity", func(t *testing.T) {
		resolver := &mockResolver{err: profile.ErrProfileNotFound}
		f := setup(t, resolver)
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
		assert.Equal(t, profile.ErrProfileNotFound, errors.Cause(err))

		// authenticated but profileless: the app routes to profile creation
		st := f.store.State()
		require.NotNil(t, st.Identity)
		assert.Nil(t, st.Profile)
		assert.Equal(t, profile.ErrProfileNotFound, errors.Cause(st.ProfileErr))
	})

	t.Run("vanished account is a session-expired failure", func(t *testing.T) {
		resolver := &mockResolver{err: account.ErrNotFound}
		f := setup(t, resolver)
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
		assert.Equal(t, session.ErrSessionExpired, errors.Cause(err))

		st := f.store.State()
		assert.Nil(t, st.Identity)
		assert.Nil(t, st.Profile)
	})

	t.Run("infrastructure failure is wrapped, identity kept", func(t *testing.T) {
		resolver := &mockResolver{err: errors.New("connection refused")}
		f := setup(t, resolver)
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load profile")

		st := f.store.State()
		assert.NotNil(t, st.Identity)
	})
}

func TestStore_SignInWithMagicLink(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		f := setup(t, &mockResolver{})
		f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

		require.NoError(t, f.store.SignInWithMagicLink(ctx, "jane@test.cd"))
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "magic_link", emailsvc.SentMessages[0].TemplateName)
	})

	t.Run("ghost email gets no email and no account", func(t *testing.T) {
		f := setup(t, &mockResolver{})

		err := f.store.SignInWithMagicLink(ctx, "ghost@test.cd")
		assert.Equal(t, account.ErrNoAccount, errors.Cause(err))
		assert.Empty(t, emailsvc.SentMessages)

		exists, err := f.acctSvc.Exists("ghost@test.cd")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestStore_SignOut(t *testing.T) {
	ctx := context.Background()
	resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1"})}
	f := setup(t, resolver)
	f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

	_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
	require.NoError(t, err)

	redirect := f.store.SignOut(ctx)
	assert.Equal(t, f.conf.FrontendBaseURL, redirect)

	st := f.store.State()
	assert.Nil(t, st.Identity)
	assert.Nil(t, st.Profile)
	assert.NoError(t, st.ProfileErr)
}

func TestStore_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1"})}
	f := setup(t, resolver)
	f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

	// not signed in
	assert.Equal(t, session.ErrNotAuthenticated, f.store.UpdatePassword(ctx, "N3wStr0ngPwd!"))

	_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
	require.NoError(t, err)

	require.NoError(t, f.store.UpdatePassword(ctx, "N3wStr0ngPwd!"))
	_, err = f.acctSvc.Authenticate("jane@test.cd", "N3wStr0ngPwd!")
	assert.NoError(t, err)
}

func TestStore_stateSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	resolver := &mockResolver{res: profile.ResolvedTeacher(profile.Teacher{ID: "t1"})}
	f := setup(t, resolver)
	f.createAccount(t, "jane@test.cd", "Str0ngPwd!")

	_, err := f.store.SignIn(ctx, "jane@test.cd", "Str0ngPwd!")
	require.NoError(t, err)

	st := f.store.State()
	st.Identity.Email = "tampered@test.cd"

	assert.Equal(t, "jane@test.cd", f.store.State().Identity.Email)
}
