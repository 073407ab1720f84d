package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ajira/core"
)

func testAccount(t *testing.T) Account {
	t.Helper()
	acct := Account{
		ID:       "0c6059a4-51f3-4b29-bd0d-3b9d2d1b5b4e",
		Email:    "jane@test.cd",
		IsActive: true,
	}
	require.NoError(t, acct.SetPassword("Str0ngPwd!"))
	return acct
}

func TestTokenGenerator_makeAndVerifyToken(t *testing.T) {
	defer func() { NowFunc = time.Now }()

	conf := core.NewTestConfig()
	tg := tokenGenerator{conf: conf}
	acct := testAccount(t)

	for _, purpose := range []TokenPurpose{TokenPasswordReset, TokenMagicLink, TokenEmailConfirm} {
		token, err := tg.makeToken(purpose, acct)
		require.NoError(t, err)
		assert.NoError(t, tg.verifyToken(purpose, acct, token))
	}
}

func TestTokenGenerator_verifyToken_purposeScoped(t *testing.T) {
	conf := core.NewTestConfig()
	tg := tokenGenerator{conf: conf}
	acct := testAccount(t)

	token, err := tg.makeToken(TokenMagicLink, acct)
	require.NoError(t, err)

	assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenPasswordReset, acct, token))
	assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenEmailConfirm, acct, token))
}

func TestTokenGenerator_verifyToken_invalid(t *testing.T) {
	conf := core.NewTestConfig()
	tg := tokenGenerator{conf: conf}
	acct := testAccount(t)

	token, err := tg.makeToken(TokenPasswordReset, acct)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "garbage"},
		{"bad timestamp", "!!!!-" + token},
		{"tampered signature", token + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenPasswordReset, acct, tt.token))
		})
	}
}

func TestTokenGenerator_verifyToken_expired(t *testing.T) {
	defer func() { NowFunc = time.Now }()

	conf := core.NewTestConfig()
	tg := tokenGenerator{conf: conf}
	acct := testAccount(t)

	token, err := tg.makeToken(TokenMagicLink, acct)
	require.NoError(t, err)

	NowFunc = func() time.Time { return time.Now().Add(conf.MagicLinkTimeoutDelta + time.Minute) }
	assert.Equal(t, ErrTokenExpired, tg.verifyToken(TokenMagicLink, acct, token))

	// the longer password-reset window is still open for its own tokens
	NowFunc = time.Now
	pwdToken, err := tg.makeToken(TokenPasswordReset, acct)
	require.NoError(t, err)
	NowFunc = func() time.Time { return time.Now().Add(conf.MagicLinkTimeoutDelta + time.Minute) }
	assert.NoError(t, tg.verifyToken(TokenPasswordReset, acct, pwdToken))
}

func TestTokenGenerator_verifyToken_oneTime(t *testing.T) {
	conf := core.NewTestConfig()
	tg := tokenGenerator{conf: conf}

	t.Run("password change invalidates", func(t *testing.T) {
		acct := testAccount(t)
		token, err := tg.makeToken(TokenPasswordReset, acct)
		require.NoError(t, err)

		require.NoError(t, acct.SetPassword("N3wStr0ngPwd!"))
		assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenPasswordReset, acct, token))
	})

	t.Run("login invalidates", func(t *testing.T) {
		acct := testAccount(t)
		token, err := tg.makeToken(TokenMagicLink, acct)
		require.NoError(t, err)

		acct.LastLogin = time.Now().UTC()
		assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenMagicLink, acct, token))
	})

	t.Run("confirmation invalidates", func(t *testing.T) {
		acct := testAccount(t)
		token, err := tg.makeToken(TokenEmailConfirm, acct)
		require.NoError(t, err)

		acct.ConfirmedAt = time.Now().UTC()
		assert.Equal(t, ErrInvalidToken, tg.verifyToken(TokenEmailConfirm, acct, token))
	})
}

func TestEncodeDecodeUID(t *testing.T) {
	acct := testAccount(t)

	uid := EncodeUID(acct)
	require.NotEmpty(t, uid)

	id, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)

	_, err = DecodeUID("%%%")
	assert.Error(t, err)
}
