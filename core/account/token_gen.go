package account

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/ajira/core"
)

// TokenPurpose scopes a one-time token to a single flow; a token minted for
// one purpose never verifies for another.
type TokenPurpose string

const (
	TokenPasswordReset TokenPurpose = "password-reset"
	TokenMagicLink     TokenPurpose = "magic-link"
	TokenEmailConfirm  TokenPurpose = "email-confirm"
)

var (
	salt    = []byte("ajira.core.account.token_gen")
	NowFunc = time.Now // mockable

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes given Account ID
func EncodeUID(acct Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acct.ID))
}

// DecodeUID base64 decodes given UID
func DecodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// tokenGenerator mints and verifies stateless HMAC tokens. A token embeds its
// mint timestamp; the signature covers account state that changes when the
// token is used (password hash, last login, confirmation), making tokens
// effectively one-time.
type tokenGenerator struct {
	conf *core.Config
}

func (tg tokenGenerator) makeToken(purpose TokenPurpose, acct Account) (string, error) {
	return tg.makeTokenWithTimestamp(purpose, acct, numSecondsSince2001(NowFunc()))
}

func (tg tokenGenerator) verifyToken(purpose TokenPurpose, acct Account, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := tg.makeTokenWithTimestamp(purpose, acct, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (numSecondsSince2001(NowFunc()) - ts) > int(tg.timeout(purpose)/time.Second) {
		return ErrTokenExpired
	}
	return nil
}

func (tg tokenGenerator) timeout(purpose TokenPurpose) time.Duration {
	switch purpose {
	case TokenMagicLink:
		return tg.conf.MagicLinkTimeoutDelta
	case TokenEmailConfirm:
		return tg.conf.EmailConfirmTimeoutDelta
	default:
		return tg.conf.PasswordResetTimeoutDelta
	}
}

func (tg tokenGenerator) makeTokenWithTimestamp(purpose TokenPurpose, acct Account, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := tg.sign(hashValue(purpose, acct, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func numSecondsSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(ref) / time.Second)
}

func (tg tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, tg.conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func hashValue(purpose TokenPurpose, acct Account, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(string(purpose))
	val.WriteString(acct.ID)
	val.Write(acct.PasswordHash)
	if !acct.LastLogin.IsZero() {
		val.WriteString(acct.LastLogin.String())
	}
	if !acct.ConfirmedAt.IsZero() {
		val.WriteString(acct.ConfirmedAt.String())
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
