package profile

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core/account"
)

var (
	// ErrProfileNotFound means the identity is valid but no profile record
	// exists yet: signup is incomplete. Distinct from infrastructure failure.
	ErrProfileNotFound = errors.New("profile not found: signup incomplete")

	// ErrAccessDenied means the identity resolved but may not use the app
	// (deactivated account).
	ErrAccessDenied = errors.New("access denied")

	// ErrMultipleProfiles signals a broken invariant: account_id is unique
	// per profile table, so more than one hit should be impossible.
	ErrMultipleProfiles = errors.New("multiple profiles resolved for one account")
)

// AccountGetter is the slice of the account repository the Resolver needs.
type AccountGetter interface {
	GetAccountByID(id string) (account.Account, error)
}

// Resolver maps an authenticated account to the single profile record it
// owns. It is the backend behind the who-am-I endpoint and the session
// store's profile resolution.
type Resolver struct {
	accounts AccountGetter
	teachers TeacherRepository
	admins   AdminRepository
	schools  SchoolRepository
}

func NewResolver(accounts AccountGetter, teachers TeacherRepository, admins AdminRepository, schools SchoolRepository) *Resolver {
	return &Resolver{
		accounts: accounts,
		teachers: teachers,
		admins:   admins,
		schools:  schools,
	}
}

// Resolve classifies the account into exactly one of {teacher, admin,
// school}. Zero hits yield ErrProfileNotFound; a deactivated account yields
// ErrAccessDenied; a missing account propagates account.ErrNotFound so
// callers can treat the identity as no longer valid.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}

	acct, err := r.accounts.GetAccountByID(accountID)
	if err != nil {
		return Resolved{}, errors.Wrap(err, "finding account by ID")
	}
	if !acct.IsActive {
		return Resolved{}, ErrAccessDenied
	}

	var (
		hits     int
		resolved Resolved
	)

	if t, err := r.teachers.GetTeacherByAccountID(accountID); err == nil {
		hits++
		resolved = ResolvedTeacher(t)
	} else if errors.Cause(err) != ErrNotFound {
		return Resolved{}, errors.Wrap(err, "finding teacher by account ID")
	}

	if a, err := r.admins.GetAdminByAccountID(accountID); err == nil {
		hits++
		resolved = ResolvedAdmin(a)
	} else if errors.Cause(err) != ErrNotFound {
		return Resolved{}, errors.Wrap(err, "finding admin by account ID")
	}

	if s, err := r.schools.GetSchoolByAccountID(accountID); err == nil {
		hits++
		resolved = ResolvedSchool(s)
	} else if errors.Cause(err) != ErrNotFound {
		return Resolved{}, errors.Wrap(err, "finding school by account ID")
	}

	switch hits {
	case 0:
		return Resolved{}, ErrProfileNotFound
	case 1:
		return resolved, nil
	default:
		return Resolved{}, ErrMultipleProfiles
	}
}
