package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/account"
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

var _ core.Logger = nopLogger{}

func setup(t *testing.T) (*account.Service, account.Repository, *core.Config) {
	t.Helper()

	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, nopLogger{}, true /* strict */)
	emailsvc.ClearSentMessages()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewAccountRepository(db)
	svc := account.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf)
	return svc, repo, conf
}

func createConfirmedAccount(t *testing.T, svc *account.Service, email, pwd string) account.Account {
	t.Helper()

	acct, err := svc.Create(account.NewAccount{Email: email, Password: pwd, PasswordConfirm: pwd})
	require.NoError(t, err)

	uid, token := lastTokenEmail(t)
	require.NoError(t, svc.Confirm(uid, token))
	emailsvc.ClearSentMessages()

	acct, err = svc.GetByID(acct.ID)
	require.NoError(t, err)
	return acct
}

// lastTokenEmail extracts the UID and token from the most recently captured
// email.
func lastTokenEmail(t *testing.T) (uid, token string) {
	t.Helper()

	require.NotEmpty(t, emailsvc.SentMessages)
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	data, ok := msg.TemplateData.(struct{ UID, Token string })
	require.True(t, ok, "unexpected template data %T", msg.TemplateData)
	return data.UID, data.Token
}

func TestService_Create(t *testing.T) {
	svc, _, _ := setup(t)

	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	account.NowFunc = func() time.Time { return created }
	defer func() { account.NowFunc = time.Now }()

	acct, err := svc.Create(account.NewAccount{
		Email:           "jane@test.cd",
		Password:        "Str0ngPwd!",
		PasswordConfirm: "Str0ngPwd!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.True(t, acct.IsActive)
	assert.False(t, acct.IsConfirmed())

	// the whole service runs on the package clock
	assert.Equal(t, created, acct.CreatedAt)
	assert.Equal(t, created, acct.UpdatedAt)

	// a confirmation email went out
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, "email_confirm", emailsvc.SentMessages[0].TemplateName)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "/auth/callback")
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := setup(t)
	acct := createConfirmedAccount(t, svc, "jane@test.cd", "Str0ngPwd!")

	t.Run("no account", func(t *testing.T) {
		_, err := svc.Authenticate("ghost@test.cd", "Str0ngPwd!")
		assert.Equal(t, account.ErrNoAccount, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate("jane@test.cd", "nope")
		assert.Equal(t, account.ErrInvalidCredentials, err)
	})

	t.Run("unconfirmed email", func(t *testing.T) {
		_, err := svc.Create(account.NewAccount{
			Email:           "newbie@test.cd",
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
		})
		require.NoError(t, err)

		_, err = svc.Authenticate("newbie@test.cd", "Str0ngPwd!")
		assert.Equal(t, account.ErrEmailNotConfirmed, err)
	})

	t.Run("deactivated", func(t *testing.T) {
		acct.IsActive = false
		_, err := repo.UpdateAccount(acct)
		require.NoError(t, err)
		defer func() {
			acct.IsActive = true
			_, _ = repo.UpdateAccount(acct)
		}()

		_, err = svc.Authenticate("jane@test.cd", "Str0ngPwd!")
		assert.Equal(t, account.ErrAccountDeactivated, err)
	})

	t.Run("ok", func(t *testing.T) {
		got, err := svc.Authenticate("JANE@test.cd", "Str0ngPwd!")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.False(t, got.LastLogin.IsZero())
	})
}

func TestService_Exists(t *testing.T) {
	svc, _, _ := setup(t)
	createConfirmedAccount(t, svc, "jane@test.cd", "Str0ngPwd!")

	exists, err := svc.Exists("jane@test.cd")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists("ghost@test.cd")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_RequestMagicLink(t *testing.T) {
	defer func() { account.NowFunc = time.Now }()
	svc, _, _ := setup(t)
	createConfirmedAccount(t, svc, "jane@test.cd", "Str0ngPwd!")

	t.Run("unknown email never creates an account", func(t *testing.T) {
		err := svc.RequestMagicLink("ghost@test.cd")
		assert.Equal(t, account.ErrNoAccount, err)
		assert.Empty(t, emailsvc.SentMessages)

		exists, err := svc.Exists("ghost@test.cd")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ok then throttled", func(t *testing.T) {
		require.NoError(t, svc.RequestMagicLink("jane@test.cd"))
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "magic_link", emailsvc.SentMessages[0].TemplateName)

		assert.Equal(t, account.ErrRateLimited, svc.RequestMagicLink("jane@test.cd"))
		assert.Len(t, emailsvc.SentMessages, 1)

		// past the throttle window it works again
		account.NowFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }
		assert.NoError(t, svc.RequestMagicLink("jane@test.cd"))
		assert.Len(t, emailsvc.SentMessages, 2)
	})
}

func TestService_ConsumeMagicLink(t *testing.T) {
	svc, _, _ := setup(t)

	// an unconfirmed account; following the link proves mailbox ownership
	_, err := svc.Create(account.NewAccount{
		Email:           "jane@test.cd",
		Password:        "Str0ngPwd!",
		PasswordConfirm: "Str0ngPwd!",
	})
	require.NoError(t, err)
	emailsvc.ClearSentMessages()

	require.NoError(t, svc.RequestMagicLink("jane@test.cd"))
	uid, token := lastTokenEmail(t)

	acct, err := svc.ConsumeMagicLink(uid, token)
	require.NoError(t, err)
	assert.True(t, acct.IsConfirmed())
	assert.False(t, acct.LastLogin.IsZero())

	// the login rotated LastLogin: the link is spent
	_, err = svc.ConsumeMagicLink(uid, token)
	require.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestService_PasswordReset(t *testing.T) {
	svc, _, _ := setup(t)
	createConfirmedAccount(t, svc, "jane@test.cd", "Str0ngPwd!")

	require.NoError(t, svc.RequestPasswordReset("jane@test.cd"))
	uid, token := lastTokenEmail(t)
	assert.Equal(t, "password_reset", emailsvc.SentMessages[len(emailsvc.SentMessages)-1].TemplateName)

	err := svc.ResetPassword(account.ResetAccountPassword{
		UID:             uid,
		Token:           token,
		Password:        "N3wStr0ngPwd!",
		PasswordConfirm: "N3wStr0ngPwd!",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate("jane@test.cd", "Str0ngPwd!")
	assert.Equal(t, account.ErrInvalidCredentials, err)
	_, err = svc.Authenticate("jane@test.cd", "N3wStr0ngPwd!")
	assert.NoError(t, err)

	// the password change spent the token
	err = svc.ResetPassword(account.ResetAccountPassword{
		UID:             uid,
		Token:           token,
		Password:        "An0therPwd!",
		PasswordConfirm: "An0therPwd!",
	})
	assert.Error(t, err)
}
