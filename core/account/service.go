package account

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrNoAccount          = errors.New("no account exists for this email")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrRateLimited        = errors.New("magic link requested too recently")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedAccounts ...Account) error
		CreateAccount(acct Account) (Account, error)
		GetAccountByID(id string) (Account, error)
		GetAccountByEmail(email string) (Account, error)
		UpdateAccount(acct Account) (Account, error)
		SetLastLogin(acct Account) (Account, error)
		SetLastMagicLink(acct Account, at time.Time) (Account, error)
		DeleteAccountsByID(ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		tokens:  tokenGenerator{conf: conf},
	}
}

func (svc *Service) checkUniqueness(email string, exclAccts ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclAccts...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(na NewAccount) (Account, error) {
	now := NowFunc().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		Email:     na.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}

	acct, err := svc.repo.CreateAccount(acct)
	if err != nil {
		return Account{}, errors.Wrap(err, "creating account")
	}

	if err := svc.sendConfirmationEmail(acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (svc *Service) GetByID(id string) (Account, error) {
	return svc.repo.GetAccountByID(id)
}

func (svc *Service) GetByEmail(email string) (Account, error) {
	return svc.repo.GetAccountByEmail(core.CleanString(email, true /* lower */))
}

// Exists reports whether an account exists for the given email. Backs the
// existence-check endpoint used to disambiguate credential failures and to
// gate magic-link issuance.
func (svc *Service) Exists(email string) (bool, error) {
	if _, err := svc.GetByEmail(email); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding account by email")
	}
	return true, nil
}

// Authenticate checks the credentials and classifies failures so callers can
// branch: no such account, bad password, unconfirmed email, deactivated.
func (svc *Service) Authenticate(email, pwd string) (Account, error) {
	acct, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrNoAccount
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	if !acct.IsActive {
		return Account{}, ErrAccountDeactivated
	}
	if !acct.IsConfirmed() {
		return Account{}, ErrEmailNotConfirmed
	}

	acct, err = svc.repo.SetLastLogin(acct)
	if err != nil {
		return Account{}, errors.Wrap(err, "setting lastLogin")
	}
	return acct, nil
}

// MakeToken mints a one-time token for the given purpose. Exposed for the
// admin CLI and tests; normal flows go through the Request* methods.
func (svc *Service) MakeToken(purpose TokenPurpose, acct Account) (string, error) {
	return svc.tokens.makeToken(purpose, acct)
}

func (svc *Service) RequestPasswordReset(email string) error {
	acct, err := svc.GetByEmail(email)
	if err != nil {
		return errors.Wrap(err, "finding account by email")
	}

	token, err := svc.tokens.makeToken(TokenPasswordReset, acct)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.sendTokenEmail(acct, "password_reset", "Password Reset", token)
	return nil
}

func (svc *Service) ResetPassword(rp ResetAccountPassword) error {
	acct, err := svc.getByUID(rp.UID)
	if err != nil {
		return err
	}
	if err = svc.tokens.verifyToken(TokenPasswordReset, acct, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = acct.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acct.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateAccount(acct); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return nil
}

func (svc *Service) UpdatePassword(id, newPwd string) error {
	acct, err := svc.repo.GetAccountByID(id)
	if err != nil {
		return errors.Wrap(err, "finding account by ID")
	}
	if err = acct.SetPassword(newPwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acct.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateAccount(acct); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return nil
}

// RequestMagicLink emails a one-time login link. It never creates accounts:
// unknown emails get ErrNoAccount. Repeat requests within the throttle
// window get ErrRateLimited.
func (svc *Service) RequestMagicLink(email string) error {
	acct, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrNoAccount
		}
		return errors.Wrap(err, "finding account by email")
	}
	if !acct.IsActive {
		return ErrAccountDeactivated
	}

	now := NowFunc().UTC()
	if !acct.LastMagicLinkAt.IsZero() && now.Sub(acct.LastMagicLinkAt) < svc.conf.MagicLinkThrottle {
		return ErrRateLimited
	}

	token, err := svc.tokens.makeToken(TokenMagicLink, acct)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	if _, err = svc.repo.SetLastMagicLink(acct, now); err != nil {
		return errors.Wrap(err, "setting lastMagicLinkAt")
	}
	svc.sendTokenEmail(acct, "magic_link", "Your Sign-In Link", token)
	return nil
}

// ConsumeMagicLink verifies a magic-link token and logs the account in.
// Recording the login rotates LastLogin, which invalidates the token.
func (svc *Service) ConsumeMagicLink(uid, token string) (Account, error) {
	acct, err := svc.getByUID(uid)
	if err != nil {
		return Account{}, err
	}
	if err = svc.tokens.verifyToken(TokenMagicLink, acct, token); err != nil {
		return Account{}, core.NewValidationError(err)
	}
	if !acct.IsActive {
		return Account{}, ErrAccountDeactivated
	}

	// a followed link proves ownership of the mailbox
	if !acct.IsConfirmed() {
		acct.ConfirmedAt = NowFunc().UTC()
		acct.UpdatedAt = acct.ConfirmedAt
		if acct, err = svc.repo.UpdateAccount(acct); err != nil {
			return Account{}, errors.Wrap(err, "confirming account")
		}
	}

	acct, err = svc.repo.SetLastLogin(acct)
	if err != nil {
		return Account{}, errors.Wrap(err, "setting lastLogin")
	}
	return acct, nil
}

func (svc *Service) Confirm(uid, token string) error {
	acct, err := svc.getByUID(uid)
	if err != nil {
		return err
	}
	if acct.IsConfirmed() {
		return nil
	}
	if err = svc.tokens.verifyToken(TokenEmailConfirm, acct, token); err != nil {
		return core.NewValidationError(err)
	}

	acct.ConfirmedAt = NowFunc().UTC()
	acct.UpdatedAt = acct.ConfirmedAt
	if _, err = svc.repo.UpdateAccount(acct); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return nil
}

func (svc *Service) ResendConfirmation(email string) error {
	acct, err := svc.GetByEmail(email)
	if err != nil {
		return errors.Wrap(err, "finding account by email")
	}
	if acct.IsConfirmed() {
		return nil
	}
	return svc.sendConfirmationEmail(acct)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteAccountsByID(ids...)
}

func (svc *Service) getByUID(uid string) (Account, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return Account{}, core.NewValidationError(ErrInvalidToken)
	}
	acct, err := svc.repo.GetAccountByID(id)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by ID")
	}
	return acct, nil
}

func (svc *Service) sendConfirmationEmail(acct Account) error {
	token, err := svc.tokens.makeToken(TokenEmailConfirm, acct)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.sendTokenEmail(acct, "email_confirm", "Confirm Your Email Address", token)
	return nil
}

func (svc *Service) sendTokenEmail(acct Account, tmplName, subject, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: acct.Email}},
		Subject:      subject,
		TemplateName: tmplName,
		TemplateData: struct{ UID, Token string }{EncodeUID(acct), token},
	})
}
