package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ajira/core"
)

// Account is an authentication identity. It carries no marketplace profile
// data; that lives in core/profile, keyed by AccountID.
type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	IsActive        bool      `json:"is_active"`
	PasswordHash    []byte    `json:"-"`
	ConfirmedAt     time.Time `json:"confirmed_at"` // zero == email not confirmed
	LastLogin       time.Time `json:"last_login"`   // UTC
	LastMagicLinkAt time.Time `json:"-"`            // UTC
	CreatedAt       time.Time `json:"created_at"`   // UTC
	UpdatedAt       time.Time `json:"updated_at"`   // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsConfirmed() bool {
	return !a.ConfirmedAt.IsZero()
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc *Service) error {
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.checkUniqueness(na.Email)
}

// ResetAccountPassword confirms a password reset with the emailed token.
type ResetAccountPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetAccountPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
